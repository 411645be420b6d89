package server

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"reshare/internal/index"
	"reshare/internal/processor"
	"reshare/internal/storage"
	"reshare/pkg/types"
)

const defaultContentType = "application/octet-stream"

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.list(w, types.Public)
}

func (s *Server) handleListPrivate(w http.ResponseWriter, r *http.Request) {
	s.list(w, types.NewNamespace(r.PathValue("keyphrase")))
}

func (s *Server) list(w http.ResponseWriter, ns types.Namespace) {
	files, err := s.index.List(ns)
	if err != nil {
		s.log.WithError(err).Error("Failed to list files")
		writeError(w, http.StatusInternalServerError, "Operation failed due to internal failure")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, r.PathValue("name"), types.Public)
}

func (s *Server) handleDownloadPrivate(w http.ResponseWriter, r *http.Request) {
	s.download(w, r, r.PathValue("name"), types.NewNamespace(r.PathValue("keyphrase")))
}

// download streams a stored file through an AdaptiveReader
func (s *Server) download(w http.ResponseWriter, r *http.Request, name string, ns types.Namespace) {
	info, err := s.index.Get(name, ns)
	if errors.Is(err, index.ErrNotFound) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Failed to look up file")
		writeError(w, http.StatusInternalServerError, "Operation failed due to internal failure")
		return
	}

	file, size, err := s.store.Open(info.StoragePath)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.WithField("file", info.Name).Warn("Indexed file has no blob")
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("Failed to open file")
		writeError(w, http.StatusInternalServerError, "Operation failed due to internal failure")
		return
	}

	src := processor.NewAdaptiveReader(file, s.pool)
	defer src.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	w.WriteHeader(http.StatusOK)

	written, err := processor.NewChunkReader(r.Context(), src).WriteTo(w)
	if err != nil {
		s.log.WithError(err).WithField("file", info.Name).WithField("written", written).Warn("Download interrupted")
	}
}

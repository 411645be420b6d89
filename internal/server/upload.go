package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"reshare/internal/processor"
	"reshare/pkg/types"
)

const (
	keyphraseField  = "keyphrase"
	maxKeyphraseLen = 1024
)

var (
	ErrEmptyFile       = errors.New("Empty files not allowed")
	ErrMissingFilename = errors.New("Missing filename")
	ErrMultipart       = errors.New("Error processing multipart data")
	ErrInternal        = errors.New("Operation failed due to internal failure")
)

// uploadError is an upload failure that ends the request
type uploadError struct {
	status int
	err    error
}

func (e *uploadError) Error() string { return e.err.Error() }
func (e *uploadError) Unwrap() error { return e.err }

// handleUpload stores every file part of a multipart request and answers with one
// status per part. A part that cannot be read ends the request with the statuses
// collected so far followed by the error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrMultipart.Error())
		return
	}

	var (
		statuses = make([]types.UploadStatus, 0)
		ns       = types.Public
		first    = true
	)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.log.WithError(err).Warn("Malformed multipart body")
			statuses = append(statuses, types.NewUploadStatus(nil, ErrMultipart))
			writeJSON(w, http.StatusBadRequest, statuses)
			return
		}

		if first && part.FormName() == keyphraseField && part.FileName() == "" {
			first = false
			keyphrase, err := readField(part)
			part.Close()
			if err != nil {
				statuses = append(statuses, types.NewUploadStatus(nil, ErrMultipart))
				writeJSON(w, http.StatusBadRequest, statuses)
				return
			}
			ns = types.NewNamespace(keyphrase)
			continue
		}
		first = false

		info, err := s.savePart(r.Context(), part, ns)
		part.Close()

		var fatal *uploadError
		if errors.As(err, &fatal) {
			statuses = append(statuses, types.NewUploadStatus(nil, fatal.err))
			writeJSON(w, fatal.status, statuses)
			return
		}
		statuses = append(statuses, types.NewUploadStatus(info, err))
	}

	writeJSON(w, http.StatusOK, statuses)
}

// savePart streams one file part into a new blob and indexes it. Per-file
// rejections are returned as plain errors, request-ending failures as *uploadError.
func (s *Server) savePart(ctx context.Context, part *multipart.Part, ns types.Namespace) (*types.FileInfo, error) {
	name := filepath.Base(part.FileName())
	if part.FileName() == "" || name == "." || name == string(filepath.Separator) {
		io.Copy(io.Discard, part)
		return nil, ErrMissingFilename
	}

	blob, err := s.store.Create()
	if err != nil {
		s.log.WithError(err).Error("Failed to create blob")
		return nil, &uploadError{status: http.StatusInternalServerError, err: ErrInternal}
	}

	sink := processor.NewFileSink(blob, s.pool)
	// Part reads block on the client and run outside the pool
	src := processor.NewAdaptiveReader(part, nil)
	defer src.Close()

	var (
		size        uint64
		contentType string
	)
	for {
		chunk, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sink.Remove()
			s.log.WithError(err).WithField("file", name).Warn("Failed to read file part")
			return nil, &uploadError{status: http.StatusBadRequest, err: ErrMultipart}
		}

		if contentType == "" {
			contentType = mimetype.Detect(chunk).String()
		}
		if err := sink.WriteChunk(ctx, chunk); err != nil {
			sink.Remove()
			s.log.WithError(err).WithField("file", name).Error("Failed to write blob")
			return nil, &uploadError{status: http.StatusInternalServerError, err: ErrInternal}
		}
		size += uint64(len(chunk))
	}

	if size == 0 {
		sink.Remove()
		return nil, ErrEmptyFile
	}

	if err := sink.Close(); err != nil {
		sink.Remove()
		s.log.WithError(err).WithField("file", name).Error("Failed to close blob")
		return nil, &uploadError{status: http.StatusInternalServerError, err: ErrInternal}
	}

	stored, err := s.index.Insert(types.FileInfo{
		Name:        name,
		Size:        size,
		UploadDate:  time.Now(),
		ContentType: contentType,
		StoragePath: sink.Path(),
	}, ns)
	if err != nil {
		s.store.Remove(sink.Path())
		s.log.WithError(err).WithField("file", name).Error("Failed to index file")
		return nil, &uploadError{status: http.StatusInternalServerError, err: ErrInternal}
	}

	s.log.WithFields(logrus.Fields{
		"file":    stored.Name,
		"size":    stored.Size,
		"private": !ns.IsPublic(),
	}).Info("Uploaded file")

	return &stored, nil
}

// readField reads a short text field
func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxKeyphraseLen+1))
	if err != nil {
		return "", fmt.Errorf("failed to read field: %w", err)
	}
	if len(data) > maxKeyphraseLen {
		return "", fmt.Errorf("field %q is too long", part.FormName())
	}
	return string(data), nil
}

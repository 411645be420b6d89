package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"reshare/internal/index"
	"reshare/internal/storage"
	"reshare/internal/workpool"
	"reshare/pkg/logging"
	"reshare/pkg/types"
)

//go:embed upload.html
var uploadForm []byte

const shutdownTimeout = 10 * time.Second

// Server serves the reshare HTTP API
type Server struct {
	index index.Index
	store *storage.Local
	pool  *workpool.Pool
	log   *logrus.Entry
	mux   *http.ServeMux
}

// New creates a server over an index and a blob store. Blocking file reads and
// writes run on pool.
func New(idx index.Index, store *storage.Local, pool *workpool.Pool) *Server {
	s := &Server{
		index: idx,
		store: store,
		pool:  pool,
		log:   logging.Component("server"),
		mux:   http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/list", s.handleList)
	s.mux.HandleFunc("GET /api/private/{keyphrase}", s.handleListPrivate)
	s.mux.HandleFunc("GET /api/download/{name}", s.handleDownload)
	s.mux.HandleFunc("GET /api/private/{keyphrase}/{name}", s.handleDownloadPrivate)
	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/upload", s.handleUploadForm)
}

// Handler returns the API handler wrapped with request logging
func (s *Server) Handler() http.Handler {
	return logRequests(s.log, s.mux)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(uploadForm)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorBody{ErrorMsg: msg})
}

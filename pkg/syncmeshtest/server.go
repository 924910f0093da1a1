package syncmeshtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/yndnr/syncmesh-go/internal/transport"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
	"github.com/yndnr/syncmesh-go/pkg/token"
)

// Server exposes a Store over the SyncMesh data API so tests can drive
// the real HTTP transport against it.
type Server struct {
	store  *Store
	hashes []string
	mux    *http.ServeMux
	http   *httptest.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAPIKeyHashes makes the server require an X-API-Key matching one of
// the given SHA-256 hashes (see token.HashKey).
func WithAPIKeyHashes(hashes ...string) ServerOption {
	return func(s *Server) {
		s.hashes = append(s.hashes, hashes...)
	}
}

// NewServer starts a server for the store. Callers own the store and
// must Close the server when done.
func NewServer(store *Store, opts ...ServerOption) *Server {
	s := &Server{
		store: store,
		mux:   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	s.http = httptest.NewServer(s.authenticate(s.mux))
	return s
}

// URL returns the server's base URL, usable as a client endpoint.
func (s *Server) URL() string {
	return s.http.URL
}

// Store returns the replica behind the server.
func (s *Server) Store() *Store {
	return s.store
}

// Close shuts the HTTP server down.
func (s *Server) Close() {
	s.http.Close()
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /v1/ping", s.handlePing)
	s.mux.HandleFunc("GET /v1/buckets/{type}/{bucket}/datatypes/{key}", s.handleFetch)
	s.mux.HandleFunc("POST /v1/buckets/{type}/{bucket}/datatypes/{key}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /v1/buckets/{type}/{bucket}/datatypes/{key}", s.handleDelete)
}

// authenticate rejects requests whose X-API-Key matches none of the
// configured hashes. Without configured hashes every request passes.
func (s *Server) authenticate(next http.Handler) http.Handler {
	if len(s.hashes) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		for _, hash := range s.hashes {
			if token.VerifyKey(key, hash) {
				next.ServeHTTP(w, r)
				return
			}
		}
		s.writeError(w, datatype.ErrUnauthorized)
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Fetch(r.Context(), &transport.FetchRequest{
		BucketType: r.PathValue("type"),
		Bucket:     r.PathValue("bucket"),
		Key:        r.PathValue("key"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type       string          `json:"type"`
		Op         json.RawMessage `json:"op"`
		Context    string          `json:"context"`
		ReturnBody bool            `json:"return_body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, datatype.ErrInvalidArgument.WithDetails("invalid request body"))
		return
	}

	snap, err := s.store.Update(r.Context(), &transport.UpdateRequest{
		BucketType: r.PathValue("type"),
		Bucket:     r.PathValue("bucket"),
		Key:        r.PathValue("key"),
		TypeName:   body.Type,
		Op:         datatype.RawOp(body.Op),
		Context:    body.Context,
		ReturnBody: body.ReturnBody,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	if snap == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), &transport.DeleteRequest{
		BucketType: r.PathValue("type"),
		Bucket:     r.PathValue("bucket"),
		Key:        r.PathValue("key"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders an error in the data API's {code,message} shape.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := "SM-CL-5000"
	message := "server error"

	var derr *datatype.Error
	if errors.As(err, &derr) {
		code = derr.Code
		message = derr.Message
		if derr.Details != "" {
			message += ": " + derr.Details
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(statusFromCode(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	})
}

// statusFromCode maps an error code to its HTTP status.
func statusFromCode(code string) int {
	switch {
	case strings.HasSuffix(code, "-4010"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4280"):
		return http.StatusPreconditionRequired
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4002"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "SM-") && strings.Contains(code, "-5"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

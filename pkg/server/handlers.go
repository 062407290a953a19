package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/internal/filterspec"
	"github.com/aleksaelezovic/kifql/pkg/model"
)

// handleRoot describes the endpoints
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name": "kifql",
		"endpoints": map[string]string{
			"/filter":  "statements matching the filter",
			"/count":   "number of solutions of the filter",
			"/ask":     "whether any statement matches the filter",
			"/compile": "SPARQL query compiled for the filter",
		},
		"parameters": []string{"subject", "property", "value", "has", "snak", "rank", "value-kind", "language", "annotated"},
	})
}

// filter reads the filter of a GET or POST request. It writes the error
// response itself and returns nil when the request is unusable.
func (s *Server) filter(w http.ResponseWriter, r *http.Request) *model.Filter {
	setCORS(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return nil
	case http.MethodGet, http.MethodPost:
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Use GET or POST")
		return nil
	}
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "Failed to parse form")
		return nil
	}
	spec, err := filterspec.FromQuery(r.Form)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	f, err := spec.Filter()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	return f
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	f := s.filter(w, r)
	if f == nil {
		return
	}
	logger := s.logger.With(zap.String("request", uuid.NewString()))

	records, err := s.store.Filter(r.Context(), f)
	if err != nil {
		logger.Warn("filter failed", zap.Stringer("filter", f), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("Execution error: %v", err))
		return
	}
	logger.Debug("filter answered", zap.Int("records", len(records)))

	format := negotiateFormat(r.Header.Get("Accept"))
	data, err := format.Format(records)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Formatting error: %v", err))
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	f := s.filter(w, r)
	if f == nil {
		return
	}
	n, err := s.store.Count(r.Context(), f)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("Execution error: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	f := s.filter(w, r)
	if f == nil {
		return
	}
	ok, err := s.store.Contains(r.Context(), f)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("Execution error: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"boolean": ok})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	f := s.filter(w, r)
	if f == nil {
		return
	}
	c, err := s.store.Compile(f)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Compile error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/sparql-query; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(c.Query().String()))
}

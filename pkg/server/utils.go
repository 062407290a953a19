package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/aleksaelezovic/kifql/pkg/server/results"
)

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.logger.Debug("request failed", zap.Int("status", statusCode), zap.String("message", message))
	s.writeJSON(w, statusCode, map[string]any{
		"error": map[string]any{"code": statusCode, "message": message},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

// negotiateFormat determines the response format based on Accept header
func negotiateFormat(acceptHeader string) results.Format {
	accept := strings.ToLower(acceptHeader)

	if strings.Contains(accept, "text/csv") {
		return results.FormatCSV
	}
	if strings.Contains(accept, "text/tab-separated-values") {
		return results.FormatTSV
	}
	if strings.Contains(accept, "application/json") {
		return results.FormatJSON
	}
	if strings.Contains(accept, "text/plain") {
		return results.FormatText
	}

	// Default to JSON
	return results.FormatJSON
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nexusflow/nexusflow-client/internal/adapters/gemini"
)

// writeError writes the hosted API's error envelope. The request id goes in
// a header since the envelope has no slot for it.
func writeError(w http.ResponseWriter, r *http.Request, code int, status, message string) {
	var ae gemini.APIError
	ae.Error.Code = code
	ae.Error.Status = status
	ae.Error.Message = message
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		w.Header().Set("X-Request-Id", rid)
	}
	writeJSON(w, code, ae)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

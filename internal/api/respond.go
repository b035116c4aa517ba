package api

import (
	"encoding/json"
	"net/http"

	apperrors "parkspot/internal/errors"
)

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	httpErr := apperrors.FromError(err)
	respondJSON(w, httpErr.Code, map[string]string{"error": httpErr.Message})
}

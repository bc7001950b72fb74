package middleware

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Success  bool   `json:"success"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// writeError writes the API's failure envelope. Middleware cannot use the
// handler package's helpers without an import cycle.
func writeError(w http.ResponseWriter, status int, category, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Success: false, Category: category, Message: message})
}

package server

import (
	"encoding/json"
	"net/http"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps data in a successful envelope.
func writeData(w http.ResponseWriter, status int, data any, message string) {
	raw, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, types.MsgServerError)
		return
	}
	writeJSON(w, status, types.Response{Success: true, Data: raw, Message: message})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.Response{Success: false, Message: message})
}

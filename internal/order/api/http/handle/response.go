package handle

import (
	"encoding/json"
	"net/http"
)

func jsonWrite(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, status int, err error) {
	jsonWrite(w, status, map[string]string{"error": err.Error()})
}

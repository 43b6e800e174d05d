package rest

import (
	"encoding/json"
	"net/http"
)

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// Response is the envelope for every non-login reply.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string `json:"token"`
	Expiration string `json:"expiration"`
	ID         string `json:"id"`
	Email      string `json:"email"`
}

type meResponse struct {
	Username   string   `json:"username"`
	Roles      []string `json:"roles"`
	Expiration string   `json:"expiration"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResponse(w http.ResponseWriter, status int, statusText, message string) {
	writeJSON(w, status, Response{Status: statusText, Message: message})
}

package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/AlexZinkM/wallet-relay/internal/model"
)

// NormalizeOrigin reduces a browser Origin value to lower-case scheme://host[:port].
// Returns "" if in is not an absolute origin.
// Example: NormalizeOrigin("HTTPS://Dapp.Example/path") = "https://dapp.example"
func NormalizeOrigin(in string) string {
	in = strings.TrimSpace(in)
	if in == "" || in == "null" {
		return ""
	}
	u, err := url.Parse(in)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s://%s", strings.ToLower(u.Scheme), strings.ToLower(u.Host))
}

// NewRequestID returns a fresh unique request id
func NewRequestID() string {
	return "req_" + uuid.NewString()
}

// IsLoopbackRequest reports whether r came from the local machine
func IsLoopbackRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// IsLoopbackHost reports whether a Host header names this machine
func IsLoopbackHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// BearerToken extracts the token of an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WriteJSON writes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a model.ErrorResponse
func WriteError(w http.ResponseWriter, status int, code string, err error) {
	WriteJSON(w, status, model.ErrorResponse{Error: err.Error(), Code: code})
}

var ErrNotJSON = errors.New("content type must be application/json")

// IsJSONRequest reports whether r declares an application/json body
func IsJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// ReadJSON decodes the request body into dst, rejecting unknown fields and
// bodies not declared as application/json
func ReadJSON(r *http.Request, dst any) error {
	if !IsJSONRequest(r) {
		return ErrNotJSON
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

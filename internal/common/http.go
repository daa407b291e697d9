package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// MaxBodyBytes caps JSON request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ClientIP attempts to determine the real client IP address from the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		if candidate := strings.TrimSpace(strings.Split(ip, ",")[0]); candidate != "" {
			return candidate
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// DecodeJSON reads a single JSON document into dst, rejecting unknown fields and
// bodies larger than MaxBodyBytes. Failures are returned as a 400 AppError
// unless the decoder itself produced a typed error such as a pricing
// validation error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return NewAppError(CodeBadRequest, "request body is empty", http.StatusBadRequest, err)
		case errors.As(err, &maxErr):
			return NewAppError(CodeBadRequest, "request body too large", http.StatusRequestEntityTooLarge, err)
		case errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syntaxErr), errors.As(err, &typeErr), strings.HasPrefix(err.Error(), "json: unknown field"):
			return NewAppError(CodeBadRequest, "invalid payload", http.StatusBadRequest, err).
				WithDetails(map[string]any{"error": err.Error()})
		default:
			return err
		}
	}
	if dec.More() {
		return NewAppError(CodeBadRequest, "request body must contain a single JSON document", http.StatusBadRequest, fmt.Errorf("trailing data"))
	}
	return nil
}

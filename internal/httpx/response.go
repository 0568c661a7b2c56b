// Package httpx writes the response envelope and decodes request bodies.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/instaflow/authcore"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// ErrMalformedBody is the message for a body that is not a JSON object.
const ErrMalformedBody = "Invalid request body"

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a success envelope.
func WriteOK(w http.ResponseWriter, status int, data any, message string) {
	_ = WriteJSON(w, status, authcore.OK(data, message))
}

// WriteError maps err through the envelope boundary and writes it.
func WriteError(w http.ResponseWriter, err error) {
	status, env := authcore.ErrorEnvelope(err)
	_ = WriteJSON(w, status, env)
}

// DecodeJSON reads a JSON object from the request body into v. An empty
// body leaves v untouched so field validation reports what is missing.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return authcore.NewAuthError(http.StatusBadRequest, authcore.CodeValidation, ErrMalformedBody, err)
	}
	return nil
}

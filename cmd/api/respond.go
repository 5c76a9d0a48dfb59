package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/mentorship-hub/internal/mentorship"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// statusFor maps service error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mentorship.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, mentorship.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, mentorship.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mentorship.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, mentorship.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError reports err to the client. Store failures are logged
// and answered with fallback so internals never leak.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", fallback, err)
		writeError(w, status, fallback)
		return
	}
	writeError(w, status, err.Error())
}

// objectID parses a hex id; the zero id is returned for anything invalid.
func objectID(s string) bson.ObjectID {
	id, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.ObjectID{}
	}
	return id
}

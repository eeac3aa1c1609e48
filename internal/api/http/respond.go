package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/ielts-listening/internal/exam"
	"github.com/mind-engage/ielts-listening/internal/storage"
)

var validate = validator.New()

type errorBody struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Anything unrecognized is
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, err error) {
	var verr *exam.ValidationError
	var fields validator.ValidationErrors
	switch {
	case errors.As(err, &fields):
		out := make(map[string]string, len(fields))
		for _, fe := range fields {
			out[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Errors: out})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Errors: map[string]string{verr.Field: verr.Msg}})
	case errors.Is(err, exam.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, exam.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, errorBody{Error: exam.ErrAlreadySubmitted.Error()})
	case errors.Is(err, exam.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
	case errors.Is(err, storage.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		log.Printf("http: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// decode reads a JSON body into dst and validates its struct tags. An
// empty body leaves dst at its zero value.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &exam.ValidationError{Field: "body", Msg: "bad json"}
	}
	return validate.Struct(dst)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}

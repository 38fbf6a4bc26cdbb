package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

const maxBodyBytes = 1 << 20

// Envelope is the uniform body of every API response.
type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Data       any         `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
	Error      apperr.Kind `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error writes err as an envelope. Only the public kind and message reach
// the client; internal causes are logged.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind, msg := apperr.Public(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	write(w, Envelope{
		StatusCode: status,
		Message:    msg,
		Success:    false,
		Error:      kind,
	})
}

// Decode reads a single JSON object from the request body into dst.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidInput("request body is required")
		}
		return apperr.Wrap(apperr.KindInvalidInput, err, "invalid request body")
	}
	return nil
}

func write(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}

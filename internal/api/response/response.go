// Package response writes JSON bodies and problem responses.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/lorasense/lorasense/internal/api/middleware"
	"github.com/lorasense/lorasense/internal/api/models"
)

// ContentTypeJSON is the media type of every non-problem response.
const ContentTypeJSON = "application/json; charset=utf-8"

// JSON writes data with the given status. A nil data writes no body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Envelope writes a reading envelope with status 200 and a wildcard
// Access-Control-Allow-Origin, whatever the lookup outcome.
func Envelope(w http.ResponseWriter, r *http.Request, env models.Envelope) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	JSON(w, r, http.StatusOK, env)
}

// Error writes problem, stamped with the request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

type problemFunc func(traceID, detail string) *models.Problem

func write(w http.ResponseWriter, r *http.Request, newProblem problemFunc, detail string) {
	Error(w, r, newProblem(middleware.GetRequestID(r.Context()), detail))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	write(w, r, models.NewNotFound, detail)
}

// MethodNotAllowed writes a 405 problem.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request, detail string) {
	write(w, r, models.NewMethodNotAllowed, detail)
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	write(w, r, models.NewInternalError, detail)
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	write(w, r, models.NewServiceUnavailable, detail)
}

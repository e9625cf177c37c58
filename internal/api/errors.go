package api

import (
	"encoding/json"
	"net/http"

	"sparqld/internal/errors"
)

// internalDiagnosticPrefix opens the body written for errors that carry no
// endpoint error code.
const internalDiagnosticPrefix = "*** Failed to evaluate query:\n*** - "

// MapErrorToStatus maps endpoint error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.BadRequest:
		return http.StatusBadRequest // 400
	case errors.ParserError:
		return http.StatusInternalServerError // 500
	case errors.NotAcceptable:
		return http.StatusNotAcceptable // 406
	case errors.EvaluationFailure:
		return http.StatusInternalServerError // 500
	case errors.MethodNotAllowed:
		return http.StatusMethodNotAllowed // 405
	case errors.RateLimited:
		return http.StatusTooManyRequests // 429
	case errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// ErrorBody is the plain-text body written for err.
func ErrorBody(err error) string {
	var ee *errors.EndpointError
	if errors.As(err, &ee) {
		return ee.Diagnostic()
	}
	return internalDiagnosticPrefix + err.Error()
}

// WriteError writes err as a plain-text response with its mapped status.
func WriteError(w http.ResponseWriter, err error) int {
	code := errors.CodeOf(err)
	status := MapErrorToStatus(code)
	if code == errors.MethodNotAllowed {
		w.Header().Set("Allow", "GET, POST")
	}
	WriteText(w, ErrorBody(err), status)
	return status
}

// WriteText writes a plain-text response
func WriteText(w http.ResponseWriter, body string, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

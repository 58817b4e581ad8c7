package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/abrezinsky/cartepays/internal/errors"
	"github.com/abrezinsky/cartepays/internal/services"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeGeometryUnavailable = "GEOMETRY_UNAVAILABLE"
	ErrCodeBaseURLMissing      = "BASE_URL_NOT_CONFIGURED"
	ErrCodeInternalServer      = "INTERNAL_SERVER_ERROR"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrBadRequest     = &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: "Bad request"}
	ErrUnauthorized   = &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: "Unauthorized"}
	ErrNotFound       = &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "Not found"}
	ErrInternalServer = &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
)

// NewAPIError creates a new API error with custom message and code
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error with custom message and auto-assigned error code
func BadRequest(message string) *APIError {
	code := ErrCodeBadRequest
	lower := strings.ToLower(message)
	if strings.Contains(lower, "validation") || strings.Contains(lower, "invalid") {
		code = ErrCodeValidation
	}
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// Unauthorized creates a 401 error with custom message
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// GeometryUnavailable creates a 502 error for a failed geometry fetch
func GeometryUnavailable(message string) *APIError {
	return &APIError{Status: http.StatusBadGateway, Code: ErrCodeGeometryUnavailable, Message: message}
}

// InternalError creates a 500 error. The cause is not exposed to the client.
func InternalError(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondSuccess writes a 200 OK with a message
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// respondError writes an error response
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = ToAPIError(err)
	}
	if apiErr.Status >= http.StatusInternalServerError && h.Log != nil {
		h.Log.Error("Request failed", "status", apiErr.Status, "error", err)
	}
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// parseIntQuery reads an optional integer query parameter
func parseIntQuery(r *http.Request, name string, fallback int) (int, error) {
	param := r.URL.Query().Get(name)
	if param == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(param)
	if err != nil {
		return 0, BadRequest("Invalid " + name + " parameter")
	}
	return v, nil
}

// ToAPIError converts service errors to appropriate API errors
func ToAPIError(err error) *APIError {
	var appErr *errors.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case errors.ErrNotFound:
			return NotFound(appErr.Message)
		case errors.ErrValidation, errors.ErrInvalidInput:
			return &APIError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: appErr.Message}
		case errors.ErrConfiguration:
			return &APIError{Status: http.StatusBadRequest, Code: ErrCodeConfiguration, Message: appErr.Message}
		case errors.ErrFetch:
			return GeometryUnavailable(appErr.Error())
		default:
			return InternalError(err)
		}
	}

	if err == services.ErrBaseURLNotConfigured {
		return &APIError{Status: http.StatusConflict, Code: ErrCodeBaseURLMissing, Message: err.Error()}
	}
	if svcErr, ok := err.(*services.ServiceError); ok {
		return BadRequest(svcErr.Message)
	}

	return InternalError(err)
}

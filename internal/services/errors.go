package services

// Service errors
var (
	ErrBaseURLNotConfigured = &ServiceError{Message: "base_url not configured"}
	ErrInvalidQRSize        = &ServiceError{Message: "size must be between 64 and 1024"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

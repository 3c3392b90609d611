package registry

import (
	"fmt"
	"strings"
)

// ServiceError is raised when the Type Registry stays unreachable or
// unusable after retries. Callers holding a cached schema fall back to it
// instead of propagating this.
type ServiceError struct {
	Service string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Service, e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func serviceError(code, message string, err error) *ServiceError {
	return &ServiceError{Service: "Type Registry", Code: code, Message: message, Err: err}
}

// classifyTransport buckets transport-level failures for the call audit.
func classifyTransport(err error) string {
	if err == nil {
		return ""
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "deadline"), strings.Contains(e, "timeout"):
		return "timeout"
	default:
		return "connection"
	}
}

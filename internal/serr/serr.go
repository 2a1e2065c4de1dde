package serr

import "fmt"

// ServiceError is an error that knows how it should be reported over HTTP.
// Env carries contextual values for logging.
type ServiceError struct {
	Err        error
	StatusCode int
	Msg        string
	Env        map[string]any
}

func NewServiceError(err error, statusCode int, msg string) *ServiceError {
	return &ServiceError{
		Err:        err,
		StatusCode: statusCode,
		Msg:        msg,
		Env:        make(map[string]any),
	}
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Msg
	}

	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

package api

import "errors"

// Kind classifies a failed API call.
type Kind int

const (
	// KindNetwork covers transport failures and unusable responses.
	KindNetwork Kind = iota
	// KindValidation is a 4xx carrying a field-level error map.
	KindValidation
	// KindAuth is a 401 or 403: the token is missing, expired or revoked.
	KindAuth
	// KindServer is any other non-2xx response.
	KindServer
)

// Error is the structured failure returned by the client. Status is zero
// for transport failures.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string { return e.Message }

// Field returns the validation message for name, if any.
func (e *Error) Field(name string) string {
	if e.Fields == nil {
		return ""
	}
	return e.Fields[name]
}

// IsAuth reports whether err is an authorization failure.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

// IsValidation reports whether err carries field-level validation errors.
func IsValidation(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindValidation
}

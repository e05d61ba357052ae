package errors

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs
const (
	TypeValidationError   = "https://api.foodhub.uz/problems/validation-error"
	TypeUnauthorized      = "https://api.foodhub.uz/problems/unauthorized"
	TypeForbidden         = "https://api.foodhub.uz/problems/forbidden"
	TypeNotFound          = "https://api.foodhub.uz/problems/not-found"
	TypeConflict          = "https://api.foodhub.uz/problems/conflict"
	TypeStoreClosed       = "https://api.foodhub.uz/problems/store-closed"
	TypeInvalidTransition = "https://api.foodhub.uz/problems/invalid-transition"
	TypeUnavailable       = "https://api.foodhub.uz/problems/service-unavailable"
	TypeInternalError     = "https://api.foodhub.uz/problems/internal-error"
)

// Problem titles
const (
	TitleValidationError   = "Validation Error"
	TitleUnauthorized      = "Unauthorized"
	TitleForbidden         = "Forbidden"
	TitleNotFound          = "Not Found"
	TitleConflict          = "Conflict"
	TitleStoreClosed       = "Store Closed"
	TitleInvalidTransition = "Invalid Status Transition"
	TitleUnavailable       = "Service Unavailable"
	TitleInternalError     = "Internal Server Error"
)

// ValidationError represents a validation error for RFC 7807
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	TraceID  string            `json:"trace_id,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Extra    map[string]any    `json:"-"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return p.Detail
}

// WithTraceID adds a trace ID to the problem details
func (p *ProblemDetails) WithTraceID(traceID string) *ProblemDetails {
	p.TraceID = traceID
	return p
}

// WithExtra adds extra fields to the problem details (they will be serialized at the top level)
func (p *ProblemDetails) WithExtra(key string, value any) *ProblemDetails {
	if p.Extra == nil {
		p.Extra = make(map[string]any)
	}
	p.Extra[key] = value
	return p
}

// MarshalJSON implements custom JSON marshaling to include extra fields at the top level
func (p *ProblemDetails) MarshalJSON() ([]byte, error) {
	result := make(map[string]any, 7+len(p.Extra))
	for k, v := range p.Extra {
		result[k] = v
	}
	result["type"] = p.Type
	result["title"] = p.Title
	result["status"] = p.Status
	if p.Detail != "" {
		result["detail"] = p.Detail
	}
	if p.Instance != "" {
		result["instance"] = p.Instance
	}
	if p.TraceID != "" {
		result["trace_id"] = p.TraceID
	}
	if len(p.Errors) > 0 {
		result["errors"] = p.Errors
	}
	return json.Marshal(result)
}

// NewProblemDetails creates a generic problem details with all fields
func NewProblemDetails(problemType, title string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// NewInternalError creates an internal server error problem
func NewInternalError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeInternalError, TitleInternalError, http.StatusInternalServerError, detail, instance)
}

// ToProblemDetails converts the error to RFC 7807 form.
func (e *Error) ToProblemDetails(instance string) *ProblemDetails {
	var problemType, title, code string
	switch {
	case e.Is(StoreClosed):
		problemType, title, code = TypeStoreClosed, TitleStoreClosed, "store_closed"
	case e.Is(InvalidTransition):
		problemType, title, code = TypeInvalidTransition, TitleInvalidTransition, "invalid_transition"
	default:
		switch e.HTTPStatus() {
		case http.StatusBadRequest:
			problemType, title = TypeValidationError, TitleValidationError
		case http.StatusUnauthorized:
			problemType, title = TypeUnauthorized, TitleUnauthorized
		case http.StatusForbidden:
			problemType, title = TypeForbidden, TitleForbidden
		case http.StatusNotFound:
			problemType, title = TypeNotFound, TitleNotFound
		case http.StatusConflict:
			problemType, title = TypeConflict, TitleConflict
		case http.StatusServiceUnavailable:
			problemType, title = TypeUnavailable, TitleUnavailable
		default:
			problemType, title = TypeInternalError, TitleInternalError
		}
	}

	detail := e.Message
	if detail == "" {
		detail = http.StatusText(e.HTTPStatus())
	}
	p := NewProblemDetails(problemType, title, e.HTTPStatus(), detail, instance)
	for _, f := range e.Fields {
		p.Errors = append(p.Errors, ValidationError{Field: f.Field, Message: f.Message, Code: f.Kind})
	}
	for k, v := range e.Details {
		p.WithExtra(k, v)
	}
	if code != "" {
		p.WithExtra("code", code)
	}
	return p
}

// FromError converts any error to problem details without leaking internals.
func FromError(err error, instance string) *ProblemDetails {
	var p *ProblemDetails
	if As(err, &p) {
		return p
	}
	var e *Error
	if As(err, &e) && e.status != 0 && e.status < http.StatusInternalServerError {
		return e.ToProblemDetails(instance)
	}
	if As(err, &e) && e.status == http.StatusServiceUnavailable {
		return e.ToProblemDetails(instance)
	}
	return NewInternalError("An unexpected error occurred", instance)
}

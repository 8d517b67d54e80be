package otel

import (
	"benzback/shared/failure"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Scope interface {
	End()
	TraceError(err error)
	TraceIfError(err *error)
	AddEvent(name string)
	SetAttribute(key string, value any)
	SetAttributes(attributes map[string]any)
}

const errorCodeKey = "error.code"

type scopeImpl struct {
	span oteltrace.Span
}

func (s *scopeImpl) End() {
	s.span.End()
}

// TraceError marks the span failed and tags it with the error's HTTP code so conflicts
// can be told apart from faults.
func (s *scopeImpl) TraceError(err error) {
	s.span.RecordError(err)
	s.span.SetAttributes(attribute.Int(errorCodeKey, failure.GetCode(err)))
	s.span.SetStatus(codes.Error, err.Error())
}

// TraceIfError takes a pointer so it can be deferred against a named error return.
func (s *scopeImpl) TraceIfError(err *error) {
	if err != nil && *err != nil {
		s.TraceError(*err)
	}
}

func (s *scopeImpl) AddEvent(name string) {
	s.span.AddEvent(name)
}

func (s *scopeImpl) SetAttribute(key string, value any) {
	switch val := value.(type) {
	case bool:
		s.span.SetAttributes(attribute.Bool(key, val))
	case string:
		s.span.SetAttributes(attribute.String(key, val))
	case int:
		s.span.SetAttributes(attribute.Int(key, val))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, val))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, val))
	case time.Duration:
		s.span.SetAttributes(attribute.Int64(key+"_ms", val.Milliseconds()))
	case fmt.Stringer:
		s.span.SetAttributes(attribute.String(key, val.String()))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, val))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", val)))
	}
}

func (s *scopeImpl) SetAttributes(attributes map[string]any) {
	for key, value := range attributes {
		s.SetAttribute(key, value)
	}
}

func NewScope(span oteltrace.Span) Scope {
	return &scopeImpl{
		span: span,
	}
}

package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures talking to the analysis service.
type ErrorKind string

const (
	KindTransport         ErrorKind = "transport"
	KindServerMessage     ErrorKind = "server_message"
	KindServerStatus      ErrorKind = "server_status"
	KindMalformedResponse ErrorKind = "malformed"
)

// UnavailableMessage is shown when the analysis service cannot be reached.
const UnavailableMessage = "Failed to get analysis. Please ensure the analysis service is running."

// ServiceError is returned by AnalysisClient for every failed call.
type ServiceError struct {
	Kind       ErrorKind
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	switch e.Kind {
	case KindServerMessage, KindServerStatus:
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Kind)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown in the page for a failed analyze.
func (e *ServiceError) UserMessage() string {
	switch e.Kind {
	case KindServerMessage:
		return e.Message
	case KindServerStatus:
		return fmt.Sprintf("Analysis failed: HTTP error! status: %d", e.StatusCode)
	case KindMalformedResponse:
		return "The analysis service returned an unexpected response."
	default:
		return UnavailableMessage
	}
}

// KindOf returns the ErrorKind of err, or "" when err is not a ServiceError.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

package models

import (
	"errors"
	"fmt"
)

// Session related errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Analysis related errors
var (
	ErrMissingInput       = errors.New("job description and resume file are required")
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	ErrNothingToDownload  = errors.New("no recruiter summary to download")
	ErrUnsupportedFormat  = errors.New("unsupported download format")
)

// ValidationMessage is shown when the form is submitted without both inputs.
const ValidationMessage = "Please provide both a job description and a resume file."

type FileError struct {
	Issue string
}

func (fe FileError) Error() string {
	return fmt.Sprintf("invalid file: %v", fe.Issue)
}

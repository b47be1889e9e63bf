package models

import "time"

// AnalysisState is the lifecycle of one analyze attempt. Exactly one of
// Idle, Loading, Succeeded or Failed.
type AnalysisState interface {
	analysisState()
}

// Idle means no attempt has been made since the session started or was reset.
type Idle struct{}

// Loading means a request to the analysis service is in flight.
type Loading struct {
	StartedAt time.Time
}

// Succeeded holds the result of the last successful attempt.
type Succeeded struct {
	Result AnalysisResult
}

// Failed holds the user-visible message of the last failed attempt.
type Failed struct {
	Message string
}

func (Idle) analysisState()      {}
func (Loading) analysisState()   {}
func (Succeeded) analysisState() {}
func (Failed) analysisState()    {}

// StateName returns a short label for log fields.
func StateName(s AnalysisState) string {
	switch s.(type) {
	case Loading:
		return "loading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

package models

import (
	"fmt"
	"strings"
)

// AnalysisRequest is the body sent to the analysis service's /analyze endpoint.
// ResumeID and JobID are placeholder identifiers from configuration; the
// optional text fields are only populated when content forwarding is enabled.
type AnalysisRequest struct {
	ResumeID       int    `json:"resume_id"`
	JobID          int    `json:"job_id"`
	JobDescription string `json:"job_description,omitempty"`
	ResumeText     string `json:"resume_text,omitempty"`
}

// AnalysisResult mirrors the jobFitAnalysis object returned by the service.
type AnalysisResult struct {
	MatchScore         float64             `json:"matchScore"`
	RecruiterSummary   string              `json:"recruiterSummary"`
	SemanticSimilarity *float64            `json:"semanticSimilarity,omitempty"`
	MissingKeywords    []string            `json:"missingKeywords,omitempty"`
	ResumeImprovements *ResumeImprovements `json:"resumeImprovements,omitempty"`
}

// ResumeImprovements holds the free-text advice block.
type ResumeImprovements struct {
	ActionableAdvice string `json:"actionableAdvice"`
}

// HasSummary reports whether there is something to download.
func (r *AnalysisResult) HasSummary() bool {
	return r != nil && r.RecruiterSummary != ""
}

// AnalysisResponse is the full success body of /analyze.
type AnalysisResponse struct {
	JobID          int             `json:"jobId,omitempty"`
	CandidateID    int             `json:"candidateId,omitempty"`
	JobFitAnalysis *AnalysisResult `json:"jobFitAnalysis"`
}

// DownloadRequest is the body sent to /download/{format}.
type DownloadRequest struct {
	Text string `json:"text"`
}

// Format is a download file type supported by the analysis service.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// DownloadBaseName is the file name, without extension, of every download.
const DownloadBaseName = "Optimized_Resume"

// Formats lists the download formats in display order.
var Formats = []Format{FormatPDF, FormatDOCX, FormatTXT}

// ParseFormat validates a format taken from a URL.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatPDF, FormatDOCX, FormatTXT:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Filename returns the attachment name for this format, e.g. Optimized_Resume.pdf.
func (f Format) Filename() string {
	return DownloadBaseName + "." + string(f)
}

// ContentType is the MIME type the service uses for this format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Label is the button text for this format.
func (f Format) Label() string {
	return strings.ToUpper(string(f))
}

// DownloadedFile is a file returned by the analysis service.
type DownloadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

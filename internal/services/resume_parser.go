package services

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rahul4469/resume-optimizer/internal/models"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTag          = regexp.MustCompile(`<[^>]+>`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// ResumeParser extracts plain text from uploaded resume files.
type ResumeParser struct{}

func NewResumeParser() *ResumeParser {
	return &ResumeParser{}
}

// DetectType works out the MIME type of an upload from its name, falling
// back to sniffing the content.
func (p *ResumeParser) DetectType(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt", ".text", ".md":
		return MimeText
	}

	sniffed := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(sniffed, MimePDF):
		return MimePDF
	case strings.HasPrefix(sniffed, "application/zip"):
		// docx is a zip container
		return MimeDOCX
	case strings.HasPrefix(sniffed, MimeText):
		return MimeText
	}
	return sniffed
}

// ExtractText returns the trimmed text of file. Unreadable or empty files
// yield a models.FileError.
func (p *ResumeParser) ExtractText(file models.ResumeFile) (string, error) {
	if len(file.Data) == 0 {
		return "", models.FileError{Issue: fmt.Sprintf("%s is empty", file.Name)}
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = p.DetectType(file.Name, file.Data)
	}

	var (
		text string
		err  error
	)
	switch {
	case strings.HasPrefix(contentType, MimePDF):
		text, err = extractPDFText(file.Data)
	case strings.HasPrefix(contentType, MimeDOCX):
		text, err = extractDocxText(file.Data)
	case strings.HasPrefix(contentType, MimeText):
		if !utf8.Valid(file.Data) {
			return "", models.FileError{Issue: fmt.Sprintf("%s is not valid UTF-8 text", file.Name)}
		}
		text = string(file.Data)
	default:
		return "", models.FileError{Issue: fmt.Sprintf("unsupported file type %s", contentType)}
	}
	if err != nil {
		return "", models.FileError{Issue: fmt.Sprintf("%s: %v", file.Name, err)}
	}

	text = CleanText(text)
	if text == "" {
		return "", models.FileError{Issue: fmt.Sprintf("no text content found in %s", file.Name)}
	}
	return text, nil
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	// GetContent returns the document.xml body
	body := doc.Editable().GetContent()
	body = docxParagraphEnd.ReplaceAllString(body, "\n")
	return html.UnescapeString(docxTag.ReplaceAllString(body, "")), nil
}

// CleanText trims each line and collapses runs of blank lines.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

package views

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Template wraps a parsed template with helper methods for rendering.
type Template struct {
	tmpl   *template.Template
	logger *zap.Logger
}

// TemplateData is the standard data structure passed to all templates.
type TemplateData struct {
	// CSRF token for forms
	CSRFToken string

	// Flash messages
	Error   string
	Warning string

	// Page-specific data
	Data interface{}

	Title string

	IsDevelopment bool
}

// DefaultFuncMap returns the default template functions available in all templates.
func DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,

		// Number formatting
		"formatScore": formatScore,
		"scoreClass":  scoreClass,

		"default": defaultValue,
	}
}

// ParseFS parses templates from fsys. The base layout and all partials are
// always included; patterns name the page templates relative to fsys.
//
//	tmpl, err := views.ParseFS(templates.FS, "pages/optimizer.gohtml")
//	// parses layouts/base.gohtml, partials/*.gohtml, pages/optimizer.gohtml
func ParseFS(fsys fs.FS, patterns ...string) (*Template, error) {
	tmpl := template.New("").Funcs(DefaultFuncMap())

	baseContent, err := fs.ReadFile(fsys, "layouts/base.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to read base template: %w", err)
	}
	tmpl, err = tmpl.Parse(string(baseContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}

	// Partials define their own names with {{define "name"}}
	partialMatches, err := fs.Glob(fsys, "partials/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("failed to glob partials: %w", err)
	}
	for _, match := range partialMatches {
		content, err := fs.ReadFile(fsys, match)
		if err != nil {
			return nil, fmt.Errorf("failed to read partial %s: %w", match, err)
		}
		tmpl, err = tmpl.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", match, err)
		}
	}

	// Pages define the "content" block rendered by "base"
	for _, pattern := range patterns {
		content, err := fs.ReadFile(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", pattern, err)
		}
		tmpl, err = tmpl.Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", pattern, err)
		}
	}

	return &Template{tmpl: tmpl, logger: zap.NewNop()}, nil
}

// WithLogger sets the logger used for render errors.
func (t *Template) WithLogger(logger *zap.Logger) *Template {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// Execute renders the template to the given writer with the provided data.
func (t *Template) Execute(w io.Writer, data *TemplateData) error {
	return t.tmpl.ExecuteTemplate(w, "base", data)
}

// ExecuteHTTPWithStatus renders the template with a custom HTTP status code.
// Output is buffered so a template error still yields a clean 500.
func (t *Template) ExecuteHTTPWithStatus(w http.ResponseWriter, r *http.Request, status int, data *TemplateData) {
	buf := &bytes.Buffer{}
	err := t.Execute(buf, data)
	if err != nil {
		t.logger.Error("template execution error", zap.Error(err), zap.String("path", r.URL.Path))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Template function implementations

// formatScore prints a match score without trailing zeros: 87 -> "87", 42.5 -> "42.5".
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func scoreClass(score float64) string {
	switch {
	case score >= 75:
		return "score-high"
	case score >= 50:
		return "score-medium"
	default:
		return "score-low"
	}
}

func defaultValue(value, defaultVal interface{}) interface{} {
	if value == nil || value == "" || value == 0 {
		return defaultVal
	}
	return value
}

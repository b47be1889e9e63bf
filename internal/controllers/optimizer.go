package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/rahul4469/resume-optimizer/internal/middleware"
	"github.com/rahul4469/resume-optimizer/internal/models"
	"github.com/rahul4469/resume-optimizer/internal/services"
	"github.com/rahul4469/resume-optimizer/internal/views"
	"go.uber.org/zap"
)

const (
	// DefaultMaxUploadBytes limits the multipart body of POST /analyze.
	DefaultMaxUploadBytes = 10 << 20

	busyMessage     = "An analysis is already in progress. Please wait for it to finish."
	tooLargeMessage = "The resume file is too large."
)

// OptimizerController serves the resume form and its two actions.
type OptimizerController struct {
	optimizer      *services.Optimizer
	parser         *services.ResumeParser
	template       *views.Template
	logger         *zap.Logger
	maxUploadBytes int64
	isDevelopment  bool
}

// NewOptimizerController creates a new OptimizerController.
func NewOptimizerController(
	optimizer *services.Optimizer,
	parser *services.ResumeParser,
	template *views.Template,
	logger *zap.Logger,
	maxUploadBytes int64,
	isDevelopment bool,
) *OptimizerController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &OptimizerController{
		optimizer:      optimizer,
		parser:         parser,
		template:       template,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
		isDevelopment:  isDevelopment,
	}
}

// OptimizerPageData holds data for the optimizer page template.
type OptimizerPageData struct {
	Session models.SessionView
	Formats []models.Format
}

// GetHome renders the form and the results panel for the current session.
func (c *OptimizerController) GetHome(w http.ResponseWriter, r *http.Request) {
	c.render(w, r, http.StatusOK, "")
}

// PostAnalyze stores the submitted inputs in the session and runs an analysis.
func (c *OptimizerController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)

	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadBytes)
	if err := r.ParseMultipartForm(c.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.render(w, r, http.StatusRequestEntityTooLarge, tooLargeMessage)
			return
		}
		c.render(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	resume, err := c.readResume(r)
	if err != nil {
		c.logger.Warn("failed to read uploaded resume", zap.Error(err))
		c.render(w, r, http.StatusBadRequest, "Could not read the uploaded resume file.")
		return
	}
	err = c.optimizer.Submit(r.Context(), session, r.FormValue("job_description"), resume)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, models.ErrAnalysisInProgress):
		c.render(w, r, http.StatusConflict, busyMessage)
	case errors.Is(err, models.ErrMissingInput):
		c.render(w, r, http.StatusUnprocessableEntity, "")
	default:
		// the session already carries the user-facing message
		c.render(w, r, http.StatusBadGateway, "")
	}
}

// PostDownload streams the recruiter summary in the requested format.
// With nothing to download, or after a failure, it redirects back to the form.
func (c *OptimizerController) PostDownload(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustCurrentSession(r)
	format := chi.URLParam(r, "format")

	file, err := c.optimizer.Download(r.Context(), session, format)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedFormat) {
			http.Error(w, "Unsupported format", http.StatusNotFound)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		c.logger.Warn("failed to write download", zap.Error(err))
	}
}

// PostReset clears the form and any result.
func (c *OptimizerController) PostReset(w http.ResponseWriter, r *http.Request) {
	middleware.MustCurrentSession(r).Reset()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// readResume returns the uploaded file, or nil when none was chosen.
func (c *OptimizerController) readResume(r *http.Request) (*models.ResumeFile, error) {
	f, header, err := r.FormFile("resume")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if header.Filename == "" {
		return nil, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &models.ResumeFile{
		Name:        header.Filename,
		ContentType: c.parser.DetectType(header.Filename, data),
		Data:        data,
	}, nil
}

// render shows the page with the session state. warning is an extra
// message that is not part of the session, e.g. a rejected request.
func (c *OptimizerController) render(w http.ResponseWriter, r *http.Request, status int, warning string) {
	session := middleware.MustCurrentSession(r)
	view := session.View()

	data := &views.TemplateData{
		Title:         "AI Resume Optimizer",
		CSRFToken:     csrf.Token(r),
		Error:         view.Error,
		Warning:       warning,
		IsDevelopment: c.isDevelopment,
		Data: OptimizerPageData{
			Session: view,
			Formats: models.Formats,
		},
	}
	c.template.ExecuteHTTPWithStatus(w, r, status, data)
}

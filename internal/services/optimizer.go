package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahul4469/resume-optimizer/internal/metrics"
	"github.com/rahul4469/resume-optimizer/internal/models"
	"go.uber.org/zap"
)

// AnalysisService is the part of AnalysisClient the optimizer depends on.
type AnalysisService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
	Download(ctx context.Context, format models.Format, text string) (*models.DownloadedFile, error)
}

// OptimizerConfig controls what the analyze request carries.
type OptimizerConfig struct {
	// ResumeID and JobID are sent as-is on every analyze request.
	ResumeID int
	JobID    int
	// IncludeContent adds the job description and extracted resume text.
	IncludeContent bool
}

// Optimizer drives the analyze and download actions of one session's form.
type Optimizer struct {
	service AnalysisService
	parser  *ResumeParser
	logger  *zap.Logger
	config  OptimizerConfig
	now     func() time.Time
}

// NewOptimizer creates a new Optimizer.
func NewOptimizer(service AnalysisService, parser *ResumeParser, logger *zap.Logger, config OptimizerConfig) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = NewResumeParser()
	}
	return &Optimizer{
		service: service,
		parser:  parser,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}
}

// Submit records the form inputs and runs Analyze. While an attempt is in
// flight it returns ErrAnalysisInProgress and leaves the stored inputs as they were.
// Without content forwarding only the file name and type are kept.
func (o *Optimizer) Submit(ctx context.Context, session *models.Session, jobDescription string, file *models.ResumeFile) error {
	if file != nil && !o.config.IncludeContent {
		file = &models.ResumeFile{Name: file.Name, ContentType: file.ContentType}
	}
	if err := session.SetInputs(jobDescription, file); err != nil {
		metrics.AnalysisRequests.WithLabelValues("busy").Inc()
		o.logger.Info("submit rejected", zap.String("state", models.StateName(session.State())))
		return err
	}
	return o.Analyze(ctx, session)
}

// Analyze runs one analyze attempt for the session. The session always ends
// in Succeeded or Failed unless another attempt was already in flight, in
// which case ErrAnalysisInProgress is returned and nothing changes.
func (o *Optimizer) Analyze(ctx context.Context, session *models.Session) error {
	input, err := session.StartAnalysis(o.now())
	switch {
	case errors.Is(err, models.ErrAnalysisInProgress):
		metrics.AnalysisRequests.WithLabelValues("busy").Inc()
		o.logger.Info("analyze rejected", zap.String("state", models.StateName(session.State())))
		return err
	case errors.Is(err, models.ErrMissingInput):
		metrics.AnalysisRequests.WithLabelValues("invalid").Inc()
		o.logger.Info("analyze rejected: missing input")
		return err
	case err != nil:
		return err
	}

	metrics.AnalysesInFlight.Inc()
	defer metrics.AnalysesInFlight.Dec()

	done := false
	defer func() {
		if !done {
			session.FailAnalysis(UnavailableMessage)
		}
	}()

	req := models.AnalysisRequest{
		ResumeID: o.config.ResumeID,
		JobID:    o.config.JobID,
	}
	if o.config.IncludeContent {
		text, err := o.parser.ExtractText(input.Resume)
		if err != nil {
			done = true
			session.FailAnalysis(fmt.Sprintf("Could not read %s. Upload a PDF, DOCX or TXT resume.", input.Resume.Name))
			metrics.AnalysisRequests.WithLabelValues("unreadable").Inc()
			o.logger.Warn("resume extraction failed", zap.String("file", input.Resume.Name), zap.Error(err))
			return err
		}
		req.JobDescription = input.JobDescription
		req.ResumeText = text
	}

	start := o.now()
	result, err := o.service.Analyze(ctx, req)
	done = true
	if err == nil && result == nil {
		err = &ServiceError{Kind: KindMalformedResponse, Endpoint: "/analyze", Err: errors.New("empty jobFitAnalysis")}
	}
	if err != nil {
		msg := UnavailableMessage
		var se *ServiceError
		if errors.As(err, &se) {
			msg = se.UserMessage()
		}
		session.FailAnalysis(msg)
		metrics.AnalysisRequests.WithLabelValues(outcome(err)).Inc()
		o.logger.Error("error fetching analysis",
			zap.Error(err),
			zap.String("state", models.StateName(session.State())),
			zap.String("kind", string(KindOf(err))),
			zap.Duration("elapsed", o.now().Sub(start)),
		)
		return err
	}

	session.CompleteAnalysis(*result)
	metrics.AnalysisRequests.WithLabelValues("succeeded").Inc()
	o.logger.Info("analysis complete",
		zap.String("state", models.StateName(session.State())),
		zap.Float64("match_score", result.MatchScore),
		zap.Int("summary_chars", len(result.RecruiterSummary)),
		zap.Duration("elapsed", o.now().Sub(start)),
	)
	return nil
}

// Download fetches the current recruiter summary as a file. It returns
// ErrNothingToDownload, without calling the service, when there is no summary.
func (o *Optimizer) Download(ctx context.Context, session *models.Session, format string) (*models.DownloadedFile, error) {
	f, err := models.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	result := session.Result()
	if !result.HasSummary() {
		return nil, models.ErrNothingToDownload
	}

	file, err := o.service.Download(ctx, f, result.RecruiterSummary)
	if err != nil {
		session.SetDownloadError(fmt.Sprintf("Failed to download %s file.", f))
		metrics.DownloadRequests.WithLabelValues(string(f), outcome(err)).Inc()
		o.logger.Error("error downloading file", zap.String("format", string(f)), zap.Error(err))
		return nil, err
	}

	session.ClearDownloadError()
	metrics.DownloadRequests.WithLabelValues(string(f), "succeeded").Inc()
	o.logger.Info("download complete", zap.String("format", string(f)), zap.Int("bytes", len(file.Data)))
	return file, nil
}

func outcome(err error) string {
	if kind := KindOf(err); kind != "" {
		return string(kind)
	}
	return string(KindTransport)
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rahul4469/resume-optimizer/internal/metrics"
	"github.com/rahul4469/resume-optimizer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ==========================
// Mock Analysis Service
// ==========================

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalysisResult), args.Error(1)
}

func (m *MockAnalysisService) Download(ctx context.Context, format models.Format, text string) (*models.DownloadedFile, error) {
	args := m.Called(ctx, format, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DownloadedFile), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func newTestSession(t *testing.T) *models.Session {
	t.Helper()
	session, err := models.NewSessionService(time.Hour).Create()
	require.NoError(t, err)
	return session
}

func resumePDF() *models.ResumeFile {
	return &models.ResumeFile{Name: "resume.pdf", ContentType: MimePDF, Data: []byte("%PDF-1.4")}
}

func newTestOptimizer(t *testing.T, svc AnalysisService, cfg OptimizerConfig) *Optimizer {
	return NewOptimizer(svc, NewResumeParser(), zaptest.NewLogger(t), cfg)
}

var placeholderRequest = models.AnalysisRequest{ResumeID: 1, JobID: 1}

// ==========================
// Analyze
// ==========================

func TestOptimizer_Analyze_MissingInputs(t *testing.T) {
	tests := []struct {
		name string
		jd   string
		file *models.ResumeFile
	}{
		{name: "nothing", jd: "", file: nil},
		{name: "no file", jd: "Senior Engineer role...", file: nil},
		{name: "no job description", jd: "", file: resumePDF()},
		{name: "whitespace job description", jd: "   \n\t", file: resumePDF()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
			session := newTestSession(t)
			session.SetInputs(tt.jd, tt.file)
			invalid := testutil.ToFloat64(metrics.AnalysisRequests.WithLabelValues("invalid"))

			err := opt.Analyze(context.Background(), session)

			assert.ErrorIs(t, err, models.ErrMissingInput)
			assert.Equal(t, invalid+1, testutil.ToFloat64(metrics.AnalysisRequests.WithLabelValues("invalid")))
			assert.Equal(t, models.Failed{Message: models.ValidationMessage}, session.State())
			assert.False(t, session.View().Loading)
			svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
		})
	}
}

func TestOptimizer_Analyze_Success(t *testing.T) {
	want := &models.AnalysisResult{MatchScore: 87, RecruiterSummary: "Tailored summary..."}
	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, placeholderRequest).Return(want, nil).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
	session := newTestSession(t)
	session.SetInputs("Senior Engineer role...", resumePDF())
	succeeded := testutil.ToFloat64(metrics.AnalysisRequests.WithLabelValues("succeeded"))

	require.NoError(t, opt.Analyze(context.Background(), session))

	assert.Equal(t, succeeded+1, testutil.ToFloat64(metrics.AnalysisRequests.WithLabelValues("succeeded")))
	assert.Zero(t, testutil.ToFloat64(metrics.AnalysesInFlight))
	assert.Equal(t, models.Succeeded{Result: *want}, session.State())
	assert.Equal(t, want, session.Result())
	view := session.View()
	assert.False(t, view.Loading)
	assert.Empty(t, view.Error)
	svc.AssertExpectations(t)
}

func TestOptimizer_Analyze_ServerError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "message from body",
			err:     &ServiceError{Kind: KindServerMessage, StatusCode: 500, Message: "model unavailable"},
			wantMsg: "model unavailable",
		},
		{
			name:    "status only",
			err:     &ServiceError{Kind: KindServerStatus, StatusCode: 500},
			wantMsg: "Analysis failed: HTTP error! status: 500",
		},
		{
			name:    "transport",
			err:     &ServiceError{Kind: KindTransport, Err: errors.New("connection refused")},
			wantMsg: UnavailableMessage,
		},
		{
			name:    "plain error",
			err:     errors.New("unexpected"),
			wantMsg: UnavailableMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAnalysisService)
			svc.On("Analyze", mock.Anything, placeholderRequest).Return(nil, tt.err).Once()

			opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
			session := newTestSession(t)
			session.SetInputs("jd", resumePDF())

			err := opt.Analyze(context.Background(), session)
			require.Error(t, err)

			view := session.View()
			assert.False(t, view.Loading)
			assert.Equal(t, tt.wantMsg, view.Error)
			assert.Nil(t, view.Result)
		})
	}
}

func TestOptimizer_Analyze_NilResultIsMalformed(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, placeholderRequest).Return(nil, nil).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
	session := newTestSession(t)
	session.SetInputs("jd", resumePDF())

	err := opt.Analyze(context.Background(), session)
	assert.Equal(t, KindMalformedResponse, KindOf(err))
	assert.IsType(t, models.Failed{}, session.State())
}

func TestOptimizer_Analyze_ClearsPreviousResult(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, placeholderRequest).
		Return(&models.AnalysisResult{MatchScore: 50, RecruiterSummary: "first"}, nil).Once()
	svc.On("Analyze", mock.Anything, placeholderRequest).
		Return(nil, &ServiceError{Kind: KindServerMessage, StatusCode: 500, Message: "model unavailable"}).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
	session := newTestSession(t)
	session.SetInputs("jd", resumePDF())

	require.NoError(t, opt.Analyze(context.Background(), session))
	require.NotNil(t, session.Result())

	require.Error(t, opt.Analyze(context.Background(), session))
	assert.Nil(t, session.Result())
	assert.Equal(t, "model unavailable", session.View().Error)
}

func TestOptimizer_Analyze_RejectsConcurrentAttempt(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, placeholderRequest).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&models.AnalysisResult{MatchScore: 70, RecruiterSummary: "done"}, nil).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
	session := newTestSession(t)
	session.SetInputs("jd", resumePDF())

	firstErr := make(chan error, 1)
	go func() { firstErr <- opt.Analyze(context.Background(), session) }()

	<-started
	assert.True(t, session.View().Loading)

	err := opt.Analyze(context.Background(), session)
	assert.ErrorIs(t, err, models.ErrAnalysisInProgress)
	assert.True(t, session.View().Loading)

	close(release)
	require.NoError(t, <-firstErr)
	assert.Equal(t, "done", session.Result().RecruiterSummary)
	svc.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestOptimizer_Analyze_IncludeContent(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, models.AnalysisRequest{
		ResumeID:       4,
		JobID:          9,
		JobDescription: "Data Analyst",
		ResumeText:     "Jane Doe\nSQL, Python",
	}).Return(&models.AnalysisResult{MatchScore: 64, RecruiterSummary: "ok"}, nil).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 4, JobID: 9, IncludeContent: true})
	session := newTestSession(t)
	session.SetInputs("Data Analyst", &models.ResumeFile{
		Name:        "resume.txt",
		ContentType: MimeText,
		Data:        []byte("  Jane Doe  \r\n SQL, Python \n"),
	})

	require.NoError(t, opt.Analyze(context.Background(), session))
	svc.AssertExpectations(t)
}

func TestOptimizer_Analyze_IncludeContentUnreadableFile(t *testing.T) {
	svc := new(MockAnalysisService)
	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1, IncludeContent: true})
	session := newTestSession(t)
	session.SetInputs("jd", &models.ResumeFile{Name: "photo.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}})

	err := opt.Analyze(context.Background(), session)

	var fileErr models.FileError
	assert.ErrorAs(t, err, &fileErr)
	assert.Contains(t, session.View().Error, "photo.png")
	assert.False(t, session.View().Loading)
	svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

func TestOptimizer_Analyze_PanicLeavesLoading(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, placeholderRequest).Run(func(mock.Arguments) { panic("boom") })

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
	session := newTestSession(t)
	session.SetInputs("jd", resumePDF())

	assert.Panics(t, func() { _ = opt.Analyze(context.Background(), session) })
	assert.Equal(t, models.Failed{Message: UnavailableMessage}, session.State())
}

// ==========================
// Download
// ==========================

func succeededSession(t *testing.T, summary string) *models.Session {
	t.Helper()
	session := newTestSession(t)
	session.SetInputs("jd", resumePDF())
	_, err := session.StartAnalysis(time.Now())
	require.NoError(t, err)
	session.CompleteAnalysis(models.AnalysisResult{MatchScore: 80, RecruiterSummary: summary})
	return session
}

func TestOptimizer_Download_NoOp(t *testing.T) {
	t.Run("no result", func(t *testing.T) {
		svc := new(MockAnalysisService)
		opt := newTestOptimizer(t, svc, OptimizerConfig{})

		file, err := opt.Download(context.Background(), newTestSession(t), "pdf")
		assert.Nil(t, file)
		assert.ErrorIs(t, err, models.ErrNothingToDownload)
		svc.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty summary", func(t *testing.T) {
		svc := new(MockAnalysisService)
		opt := newTestOptimizer(t, svc, OptimizerConfig{})

		_, err := opt.Download(context.Background(), succeededSession(t, ""), "pdf")
		assert.ErrorIs(t, err, models.ErrNothingToDownload)
		svc.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOptimizer_Download_Success(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Download", mock.Anything, models.FormatPDF, "Hello").Return(&models.DownloadedFile{
		Filename:    "Optimized_Resume.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF"),
	}, nil).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{})
	session := succeededSession(t, "Hello")
	session.SetDownloadError("Failed to download pdf file.")

	file, err := opt.Download(context.Background(), session, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "Optimized_Resume.pdf", file.Filename)
	assert.Empty(t, session.View().Error)
	svc.AssertExpectations(t)
}

func TestOptimizer_Download_FailureKeepsResult(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Download", mock.Anything, models.FormatDOCX, "Hello").
		Return(nil, &ServiceError{Kind: KindServerStatus, StatusCode: 500}).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{})
	session := succeededSession(t, "Hello")

	_, err := opt.Download(context.Background(), session, "docx")
	require.Error(t, err)

	view := session.View()
	assert.Equal(t, "Failed to download docx file.", view.Error)
	require.NotNil(t, view.Result)
	assert.Equal(t, "Hello", view.Result.RecruiterSummary)
	assert.False(t, view.Loading)
}

func TestOptimizer_Download_UnsupportedFormat(t *testing.T) {
	svc := new(MockAnalysisService)
	opt := newTestOptimizer(t, svc, OptimizerConfig{})

	_, err := opt.Download(context.Background(), succeededSession(t, "Hello"), "exe")
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
	svc.AssertNotCalled(t, "Download", mock.Anything, mock.Anything, mock.Anything)
}

// ==========================
// Submit
// ==========================

// keptResume returns the resume held by a settled session.
func keptResume(t *testing.T, session *models.Session) models.ResumeFile {
	t.Helper()
	input, err := session.StartAnalysis(time.Now())
	require.NoError(t, err)
	return input.Resume
}

func TestOptimizer_Submit_DropsResumeBytesWithoutContentForwarding(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, placeholderRequest).
		Return(&models.AnalysisResult{MatchScore: 87, RecruiterSummary: "ok"}, nil).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
	session := newTestSession(t)
	upload := &models.ResumeFile{Name: "resume.pdf", ContentType: MimePDF, Data: make([]byte, 1<<20)}

	require.NoError(t, opt.Submit(context.Background(), session, "jd", upload))

	kept := keptResume(t, session)
	assert.Equal(t, "resume.pdf", kept.Name)
	assert.Equal(t, MimePDF, kept.ContentType)
	assert.Nil(t, kept.Data)
	assert.Len(t, upload.Data, 1<<20, "caller's file is not modified")
}

func TestOptimizer_Submit_KeepsResumeBytesWithContentForwarding(t *testing.T) {
	svc := new(MockAnalysisService)
	svc.On("Analyze", mock.Anything, mock.AnythingOfType("models.AnalysisRequest")).
		Return(&models.AnalysisResult{MatchScore: 87, RecruiterSummary: "ok"}, nil).Once()

	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1, IncludeContent: true})
	session := newTestSession(t)
	upload := &models.ResumeFile{Name: "resume.txt", ContentType: MimeText, Data: []byte("Jane Doe")}

	require.NoError(t, opt.Submit(context.Background(), session, "jd", upload))

	assert.Equal(t, []byte("Jane Doe"), keptResume(t, session).Data)
}

func TestOptimizer_Submit_BusyKeepsInputs(t *testing.T) {
	svc := new(MockAnalysisService)
	opt := newTestOptimizer(t, svc, OptimizerConfig{ResumeID: 1, JobID: 1})
	session := newTestSession(t)
	require.NoError(t, session.SetInputs("first", resumePDF()))
	_, err := session.StartAnalysis(time.Now())
	require.NoError(t, err)

	err = opt.Submit(context.Background(), session, "second", &models.ResumeFile{Name: "other.docx", ContentType: MimeDOCX})

	assert.ErrorIs(t, err, models.ErrAnalysisInProgress)
	view := session.View()
	assert.Equal(t, "first", view.JobDescription)
	assert.Equal(t, "resume.pdf", view.ResumeName)
	assert.True(t, view.Loading)
	svc.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
}

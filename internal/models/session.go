package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ResumeFile is the uploaded resume held for the session.
type ResumeFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// AnalysisInput is a snapshot of the form inputs taken when an attempt starts.
type AnalysisInput struct {
	JobDescription string
	Resume         ResumeFile
}

// Session is the UI state of one browser session. All fields are guarded by mu.
type Session struct {
	// Token is only set when the session is created. Lookups leave it empty,
	// the store only keeps the hash.
	Token     string
	TokenHash string

	mu             sync.Mutex
	lastSeen       time.Time
	jobDescription string
	resume         *ResumeFile
	state          AnalysisState
	downloadError  string
}

func newSession(tokenHash string, now time.Time) *Session {
	return &Session{
		TokenHash: tokenHash,
		lastSeen:  now,
		state:     Idle{},
	}
}

// SetInputs stores the job description and, when file is non-nil, replaces
// the selected resume. Inputs are left alone while an attempt is in flight.
func (s *Session) SetInputs(jobDescription string, file *ResumeFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.state.(Loading); busy {
		return ErrAnalysisInProgress
	}
	s.jobDescription = jobDescription
	if file != nil {
		s.resume = file
	}
	return nil
}

// StartAnalysis moves the session into Loading and returns the inputs to send.
// Missing inputs leave the session in Failed with the validation message.
func (s *Session) StartAnalysis(now time.Time) (AnalysisInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.state.(Loading); busy {
		return AnalysisInput{}, ErrAnalysisInProgress
	}

	s.downloadError = ""
	if strings.TrimSpace(s.jobDescription) == "" || s.resume == nil {
		s.state = Failed{Message: ValidationMessage}
		return AnalysisInput{}, ErrMissingInput
	}

	s.state = Loading{StartedAt: now}
	return AnalysisInput{
		JobDescription: s.jobDescription,
		Resume:         *s.resume,
	}, nil
}

// CompleteAnalysis stores a successful result.
func (s *Session) CompleteAnalysis(result AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Succeeded{Result: result}
}

// FailAnalysis records a failed attempt.
func (s *Session) FailAnalysis(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Failed{Message: message}
}

// State returns the current analysis state.
func (s *Session) State() AnalysisState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns a copy of the last successful result, or nil.
func (s *Session) Result() *AnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state.(Succeeded); ok {
		r := st.Result
		return &r
	}
	return nil
}

// SetDownloadError records a failed download. It is shown until the next
// download or analyze attempt.
func (s *Session) SetDownloadError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadError = message
}

// ClearDownloadError removes the message left by a failed download.
func (s *Session) ClearDownloadError() {
	s.SetDownloadError("")
}

// Reset clears inputs and returns the session to Idle. An in-flight attempt
// keeps running and will overwrite the state when it finishes.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobDescription = ""
	s.resume = nil
	s.downloadError = ""
	if _, busy := s.state.(Loading); !busy {
		s.state = Idle{}
	}
}

// SessionView is the read-only snapshot rendered by templates.
type SessionView struct {
	JobDescription string
	ResumeName     string
	Loading        bool
	Error          string
	Result         *AnalysisResult
}

// View takes a consistent snapshot of the session for rendering.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{JobDescription: s.jobDescription}
	if s.resume != nil {
		v.ResumeName = s.resume.Name
	}
	switch st := s.state.(type) {
	case Loading:
		v.Loading = true
	case Succeeded:
		r := st.Result
		v.Result = &r
	case Failed:
		v.Error = st.Message
	}
	if v.Error == "" {
		v.Error = s.downloadError
	}
	return v
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

const (
	// MinBytesPerToken is the minimum number of bytes for a session token
	MinBytesPerToken = 32
	// DefaultTokenLength is the default token length (32 bytes = 256 bits)
	DefaultTokenLength = 32
	// DefaultIdleTimeout is how long an unused session is kept in memory.
	DefaultIdleTimeout = 2 * time.Hour
	// DefaultMaxSessions caps how many sessions are held at once.
	DefaultMaxSessions = 10000
)

// SessionService keeps sessions in process memory, keyed by token hash.
// When MaxSessions is reached, creating a session evicts the least recently
// seen one.
type SessionService struct {
	BytesPerToken int
	IdleTimeout   time.Duration
	MaxSessions   int
	Now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(idleTimeout time.Duration) *SessionService {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &SessionService{
		BytesPerToken: DefaultTokenLength,
		IdleTimeout:   idleTimeout,
		MaxSessions:   DefaultMaxSessions,
		Now:           time.Now,
		sessions:      make(map[string]*Session),
	}
}

// Create starts a new empty session. The returned session carries the raw token.
func (ss *SessionService) Create() (*Session, error) {
	bytesPerToken := ss.BytesPerToken
	if bytesPerToken < MinBytesPerToken {
		bytesPerToken = MinBytesPerToken
	}
	token, err := ss.generateToken(bytesPerToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session := newSession(ss.hash(token), ss.Now())
	session.Token = token

	ss.mu.Lock()
	if ss.MaxSessions > 0 {
		for len(ss.sessions) >= ss.MaxSessions {
			ss.evictOldestLocked()
		}
	}
	ss.sessions[session.TokenHash] = session
	ss.mu.Unlock()
	return session, nil
}

// evictOldestLocked drops the least recently seen session. ss.mu must be held.
func (ss *SessionService) evictOldestLocked() {
	var (
		oldestHash string
		oldestSeen time.Time
	)
	for hash, session := range ss.sessions {
		seen := session.idleSince()
		if oldestHash == "" || seen.Before(oldestSeen) {
			oldestHash, oldestSeen = hash, seen
		}
	}
	delete(ss.sessions, oldestHash)
}

// Lookup returns the session for a raw token and marks it as used.
func (ss *SessionService) Lookup(token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	tokenHash := ss.hash(token)

	ss.mu.RLock()
	session, ok := ss.sessions[tokenHash]
	ss.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := ss.Now()
	if now.Sub(session.idleSince()) > ss.IdleTimeout {
		ss.remove(tokenHash)
		return nil, ErrSessionExpired
	}
	session.touch(now)
	return session, nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (ss *SessionService) Sweep() int {
	now := ss.Now()
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for hash, session := range ss.sessions {
		if now.Sub(session.idleSince()) > ss.IdleTimeout {
			delete(ss.sessions, hash)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (ss *SessionService) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

func (ss *SessionService) remove(tokenHash string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, tokenHash)
}

func (ss *SessionService) generateToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (ss *SessionService) hash(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}

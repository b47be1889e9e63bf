package middleware

import (
	"net/http"

	"github.com/rahul4469/resume-optimizer/context"
	"github.com/rahul4469/resume-optimizer/internal/metrics"
	"github.com/rahul4469/resume-optimizer/internal/models"
	"go.uber.org/zap"
)

type SessionMiddleware struct {
	sessionService *models.SessionService
	cookieName     string
	secure         bool
	logger         *zap.Logger
}

func NewSessionMiddleware(sessionService *models.SessionService, cookieName string, secure bool, logger *zap.Logger) *SessionMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{
		sessionService: sessionService,
		cookieName:     cookieName,
		secure:         secure,
		logger:         logger,
	}
}

// SetSession loads the form session named by the session cookie and stores
// it in the request context. A missing, unknown or expired cookie gets a
// fresh session and a new cookie; requests are never blocked here.
func (m *SessionMiddleware) SetSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session *models.Session
		if cookie, err := r.Cookie(m.cookieName); err == nil {
			session, err = m.sessionService.Lookup(cookie.Value)
			if err != nil {
				m.logger.Debug("discarding session cookie", zap.Error(err))
			}
		}

		if session == nil {
			created, err := m.sessionService.Create()
			if err != nil {
				m.logger.Error("failed to create session", zap.Error(err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			metrics.ActiveSessions.Set(float64(m.sessionService.Len()))
			m.setCookie(w, created.Token)
			session = created
		}

		ctx := context.ContextSetSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentSession returns the session set by SetSession, or nil.
func CurrentSession(r *http.Request) *models.Session {
	return context.ContextGetSession(r.Context())
}

// MustCurrentSession is like CurrentSession but panics if no session is found.
// Only use this in handlers mounted behind SetSession.
func MustCurrentSession(r *http.Request) *models.Session {
	session := CurrentSession(r)
	if session == nil {
		panic("MustCurrentSession called without SetSession middleware")
	}
	return session
}

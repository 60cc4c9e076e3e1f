// Package auth gates destructive editor actions behind the shared publish
// password.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/starford/hugopub/internal/apperr"
)

// Prompt problems shown when asking again.
const (
	ProblemRequired = "password required"
	ProblemWrong    = "wrong password, try again"
)

// ErrCanceled is returned by RequireAuth when the prompt is dismissed.
var ErrCanceled = apperr.ErrCanceled

// Session records whether the user has been authorized. It lives as long
// as one editing session and is only granted by a Gate.
type Session struct {
	authorized atomic.Bool
}

// NewSession returns an unauthorized session.
func NewSession() *Session {
	return &Session{}
}

// Authorized reports whether a password was accepted in this session.
func (s *Session) Authorized() bool {
	return s.authorized.Load()
}

// Clear revokes the authorization.
func (s *Session) Clear() {
	s.authorized.Store(false)
}

func (s *Session) grant() {
	s.authorized.Store(true)
}

// Verifier checks a password against the backend.
type Verifier interface {
	VerifyPassword(ctx context.Context, password string) (bool, error)
}

// PromptRequest describes one password prompt.
type PromptRequest struct {
	Action  string
	Attempt int
	// Problem explains why the previous attempt was rejected.
	Problem string
}

// Prompter asks the user for the password. It returns ErrCanceled when
// the user backs out.
type Prompter interface {
	Prompt(ctx context.Context, req PromptRequest) (string, error)
}

// Gate ensures actions run only after a successful verification.
type Gate struct {
	verifier Verifier
	session  *Session
	prompter Prompter
	logger   *slog.Logger
}

// NewGate builds a gate over session.
func NewGate(verifier Verifier, session *Session, prompter Prompter, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		verifier: verifier,
		session:  session,
		prompter: prompter,
		logger:   logger,
	}
}

// Session returns the session this gate grants.
func (g *Gate) Session() *Session {
	return g.session
}

// Verify checks password and grants the session on success. Any failure,
// including transport errors, yields false. An empty password is rejected
// without a request.
func (g *Gate) Verify(ctx context.Context, password string) bool {
	if strings.TrimSpace(password) == "" {
		return false
	}
	ok, err := g.verifier.VerifyPassword(ctx, password)
	if err != nil {
		g.logger.Warn("password verification failed", slog.String("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}
	g.session.grant()
	return true
}

// RequireAuth runs onAuthorized once the session is authorized, prompting
// for the password until it is accepted or the prompt is canceled. An
// already authorized session never triggers a verification.
func (g *Gate) RequireAuth(ctx context.Context, action string, onAuthorized func(context.Context) error) error {
	if g.session.Authorized() {
		return onAuthorized(ctx)
	}

	req := PromptRequest{Action: action}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req.Attempt++

		password, err := g.prompter.Prompt(ctx, req)
		if err != nil {
			if errors.Is(err, ErrCanceled) {
				g.logger.Info("authorization canceled", slog.String("action", action))
			}
			return err
		}

		if strings.TrimSpace(password) == "" {
			req.Problem = ProblemRequired
			continue
		}
		if !g.Verify(ctx, password) {
			req.Problem = ProblemWrong
			continue
		}
		return onAuthorized(ctx)
	}
}

package docstore

import (
	"context"
	"strings"
	"sync"
)

// Picker asks the user to choose among candidates. Returning
// ErrUserCancelled means the user dismissed the choice.
type Picker interface {
	PickFile(ctx context.Context, files []string) (string, error)
	PickFolder(ctx context.Context, folders []string) (string, error)
}

// IdentityProvider resolves the signed-in account.
type IdentityProvider interface {
	Identity(ctx context.Context) (Identity, error)
}

// Logger receives identity lookup failures. *slog.Logger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets where swallowed identity errors are reported.
func WithSessionLogger(l Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session carries the per-user state of an adapter: how to ask the user for
// a file, and who the user is. The identity is cached after the first
// successful lookup.
type Session struct {
	picker   Picker
	provider IdentityProvider
	logger   Logger

	mu     sync.Mutex
	cached *Identity
}

// NewSession builds a session. Either argument may be nil.
func NewSession(picker Picker, provider IdentityProvider, opts ...SessionOption) *Session {
	s := &Session{picker: picker, provider: provider, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) pickFile(ctx context.Context, files []string) (Handle, error) {
	if s.picker == nil {
		return "", ErrUserCancelled
	}
	choice, err := s.picker.PickFile(ctx, files)
	if err != nil {
		return "", err
	}
	return Handle(choice), nil
}

func (s *Session) pickFolder(ctx context.Context, folders []string) (Handle, error) {
	if s.picker == nil {
		return "", ErrUserCancelled
	}
	choice, err := s.picker.PickFolder(ctx, folders)
	if err != nil {
		return "", err
	}
	return Handle(choice), nil
}

func (s *Session) identity(ctx context.Context) Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached
	}
	if s.provider == nil {
		return Identity{}
	}
	id, err := s.provider.Identity(ctx)
	if err != nil {
		s.logger.Warn("identity lookup failed", "error", err)
		return Identity{}
	}
	s.cached = &id
	return id
}

// StaticIdentity is an IdentityProvider with a fixed address.
type StaticIdentity string

func (s StaticIdentity) Identity(context.Context) (Identity, error) {
	return Identity{EmailAddress: strings.TrimSpace(string(s))}, nil
}

// StaticPicker answers every prompt with preconfigured choices. An empty
// choice is treated as a dismissed prompt.
type StaticPicker struct {
	File   string
	Folder string
	// FolderSet marks Folder as chosen even when it is the root ("").
	FolderSet bool
}

func (p StaticPicker) PickFile(context.Context, []string) (string, error) {
	if p.File == "" {
		return "", ErrUserCancelled
	}
	return p.File, nil
}

func (p StaticPicker) PickFolder(context.Context, []string) (string, error) {
	if p.Folder == "" && !p.FolderSet {
		return "", ErrUserCancelled
	}
	return p.Folder, nil
}

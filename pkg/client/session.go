package client

import (
	"context"
	"errors"
	"sync"
)

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Load() string
	Save(token string)
	Clear()
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *MemoryTokenStore) Load() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *MemoryTokenStore) Save(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *MemoryTokenStore) Clear() {
	s.Save("")
}

// FormState is what a form needs to render: whether it is disabled and the
// message to show under it.
type FormState struct {
	InFlight bool
	Disabled bool
	Message  string
	IsError  bool
}

// Session holds the client-side state shared by all forms: the token, the
// signed-in student and one FormState per form.
type Session struct {
	tokens TokenStore

	mu    sync.Mutex
	user  *Student
	forms map[string]*FormState
}

func NewSession(tokens TokenStore) *Session {
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}
	return &Session{tokens: tokens, forms: map[string]*FormState{}}
}

func (s *Session) Token() string {
	return s.tokens.Load()
}

func (s *Session) CurrentUser() *Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) SignIn(token string, user *Student) {
	s.tokens.Save(token)
	s.SetUser(user)
}

func (s *Session) SetUser(user *Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// SignOut clears the token and the current user. It reports whether a token
// was present.
func (s *Session) SignOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.tokens.Load() != ""
	s.tokens.Clear()
	s.user = nil
	return had
}

func (s *Session) Form(formID string) FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.forms[formID]; ok {
		return *f
	}
	return FormState{}
}

// Dismiss clears the form's message.
func (s *Session) Dismiss(formID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.forms[formID]; ok {
		f.Message, f.IsError = "", false
	}
}

// Submit runs fn unless formID already has a request in flight. The form is
// disabled while fn runs and re-enabled afterwards, whatever the outcome;
// the outcome lands in the form's message.
func (s *Session) Submit(ctx context.Context, formID string, fn func(ctx context.Context) (string, error)) error {
	s.mu.Lock()
	f, ok := s.forms[formID]
	if !ok {
		f = &FormState{}
		s.forms[formID] = f
	}
	if f.InFlight {
		s.mu.Unlock()
		return ErrRequestInProgress
	}
	f.InFlight, f.Disabled = true, true
	f.Message, f.IsError = "", false
	s.mu.Unlock()

	var (
		success string
		err     error
	)
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		f.InFlight, f.Disabled = false, false
		if err != nil {
			f.Message, f.IsError = userMessage(err), true
		} else {
			f.Message, f.IsError = success, false
		}
	}()

	success, err = fn(ctx)
	return err
}

func userMessage(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return err.Error()
}

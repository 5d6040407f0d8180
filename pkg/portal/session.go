package portal

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

// Session tracks the signed-in user. Construction is optimistic: stored
// credentials are trusted without a network call, and a stale token
// surfaces on the first authenticated request instead.
type Session struct {
	client *Client
	store  TokenStore

	mu        sync.Mutex
	state     State
	user      *User
	lastError string
}

func NewSession(client *Client, store TokenStore) *Session {
	s := &Session{client: client, store: store}
	if creds, err := store.Load(); err == nil && creds.Token != "" && creds.RefreshToken != "" && creds.User != nil {
		s.state = StateAuthenticated
		s.user = creds.User
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) CurrentUser() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// HasRole is false, not an error, when nobody is signed in.
func (s *Session) HasRole(role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil && s.user.Role == role
}

func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

type loginPayload struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func (s *Session) Login(ctx context.Context, email, password string, rememberMe bool) error {
	s.setAuthenticating()

	var resp AuthResponse
	err := s.client.do(ctx, http.MethodPost, "/api/auth/login", loginPayload{
		Email:      email,
		Password:   password,
		RememberMe: rememberMe,
	}, &resp)
	if err != nil {
		s.recordFailure(err, "Login failed. Please try again.")
		return err
	}

	return s.establish(resp)
}

type RegisterInput struct {
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	PropertyAddress *string `json:"propertyAddress,omitempty"`
	UnitNumber      *string `json:"unitNumber,omitempty"`
}

func (s *Session) Register(ctx context.Context, input RegisterInput) error {
	s.setAuthenticating()

	var resp AuthResponse
	if err := s.client.do(ctx, http.MethodPost, "/api/auth/register", input, &resp); err != nil {
		s.recordFailure(err, "Registration failed. Please try again.")
		return err
	}

	return s.establish(resp)
}

// Logout revokes the server-side sessions on a best-effort basis and
// always clears local state.
func (s *Session) Logout(ctx context.Context) {
	_ = s.client.do(ctx, http.MethodPost, "/api/auth/logout", struct{}{}, nil)
	_ = s.store.Clear()

	s.mu.Lock()
	s.state = StateAnonymous
	s.user = nil
	s.lastError = ""
	s.mu.Unlock()
}

// RefreshCurrentUser re-fetches the profile from /api/auth/me. An
// identity we cannot confirm is an identity we do not trust: any
// failure, not just an expired session, signs the user out.
func (s *Session) RefreshCurrentUser(ctx context.Context) error {
	var user User
	if err := s.client.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		_ = s.store.Clear()
		s.Reset()
		return err
	}

	s.mu.Lock()
	s.user = &user
	s.state = StateAuthenticated
	s.mu.Unlock()

	creds, err := s.store.Load()
	if err == nil {
		creds.User = &user
		_ = s.store.Save(creds)
	}
	return nil
}

// Reset drops local session state without touching the server; wired as
// the client teardown hook.
func (s *Session) Reset() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.user = nil
	s.mu.Unlock()
}

func (s *Session) setAuthenticating() {
	s.mu.Lock()
	s.state = StateAuthenticating
	s.lastError = ""
	s.mu.Unlock()
}

func (s *Session) establish(resp AuthResponse) error {
	if err := s.store.Save(Credentials{
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         &resp.User,
	}); err != nil {
		s.mu.Lock()
		s.state = StateAnonymous
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	s.user = &resp.User
	s.mu.Unlock()
	return nil
}

// recordFailure keeps the server's human message when it sent one.
func (s *Session) recordFailure(err error, fallback string) {
	message := fallback
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}

	s.mu.Lock()
	s.state = StateAnonymous
	s.user = nil
	s.lastError = message
	s.mu.Unlock()
}

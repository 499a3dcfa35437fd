// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/services"
	"github.com/desertthunder/peai/internal/shared"
	"golang.org/x/oauth2"
)

// MockIdentityProvider is a test double for [services.IdentityProvider].
//
// Any code other than ValidCode fails the exchange.
type MockIdentityProvider struct {
	Subject   string
	Email     string
	FullName  string
	Picture   string
	ValidCode string

	ExchangeErr  error
	PrincipalErr error
}

// NewMockIdentityProvider returns a provider that signs in "mock|1" for code "good-code".
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		Subject:   "mock|1",
		Email:     "student@example.com",
		FullName:  "Test Student",
		ValidCode: "good-code",
	}
}

func (m *MockIdentityProvider) Name() string { return "mock" }

func (m *MockIdentityProvider) AuthURL(state string) string {
	return "https://idp.example.com/authorize?" + url.Values{"state": {state}}.Encode()
}

func (m *MockIdentityProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	if code != m.ValidCode {
		return nil, shared.ErrAuthFailed
	}
	return &oauth2.Token{AccessToken: "token-" + code}, nil
}

func (m *MockIdentityProvider) Principal(ctx context.Context, token *oauth2.Token) (*services.Principal, error) {
	if m.PrincipalErr != nil {
		return nil, m.PrincipalErr
	}
	return &services.Principal{Subject: m.Subject, Email: m.Email, Name: m.FullName, Picture: m.Picture}, nil
}

func (m *MockIdentityProvider) LogoutURL(returnTo string) string {
	return "https://idp.example.com/v2/logout?" + url.Values{"returnTo": {returnTo}}.Encode()
}

// StubResponder answers chat prompts from Fn, or echoes the prompt when Fn is nil.
type StubResponder struct {
	mu    sync.Mutex
	Fn    func(prompt string) (string, error)
	Calls []string
}

func (s *StubResponder) Reply(ctx context.Context, history []models.Message, prompt string) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, prompt)
	fn := s.Fn
	s.mu.Unlock()

	if fn == nil {
		return "echo: " + prompt, nil
	}
	return fn(prompt)
}

// MustOpenDB returns a migrated in-memory database closed at the end of the test.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if err == nil && !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

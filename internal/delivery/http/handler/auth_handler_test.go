package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/calendar"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/repository"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/service"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/testfixtures"
)

type stubOAuth struct {
	creds *calendar.Credentials
	err   error
	codes []string
}

func (s *stubOAuth) ExchangeAuthCode(ctx context.Context, code string) (*calendar.Credentials, error) {
	s.codes = append(s.codes, code)
	return s.creds, s.err
}

func (s *stubOAuth) RefreshAccessToken(ctx context.Context, refreshToken string) (*calendar.Credentials, error) {
	return s.creds, s.err
}

type stubAuthURL struct{}

func (stubAuthURL) AuthURL(state string) string {
	return "https://provider.example/consent?state=" + url.QueryEscape(state)
}

func newTestAuthHandler(t *testing.T, oauth *stubOAuth) (*AuthHandler, *service.TokenService) {
	t.Helper()
	db, _ := testfixtures.NewStore(t)
	tokenService := service.NewTokenService(db, testfixtures.TestLogger(), repository.NewAuthTokenRepository(), oauth)
	return NewAuthHandler(tokenService, stubAuthURL{}), tokenService
}

// authorize runs the redirect leg and returns the state it issued.
func authorize(t *testing.T, h *AuthHandler) string {
	t.Helper()

	rec := httptest.NewRecorder()
	h.Authorize(rec, httptest.NewRequest(http.MethodGet, "/auth", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("Authorize status = %d, want 302", rec.Code)
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Unparseable redirect location: %v", err)
	}
	state := location.Query().Get("state")
	if state == "" {
		t.Fatal("Redirect location carries no state")
	}
	return state
}

func TestAuthFlow_Success(t *testing.T) {
	oauth := &stubOAuth{creds: &calendar.Credentials{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}
	h, tokenService := newTestAuthHandler(t, oauth)

	state := authorize(t, h)

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet,
		"/auth/callback?state="+url.QueryEscape(state)+"&code=the-code", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Callback status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(oauth.codes) != 1 || oauth.codes[0] != "the-code" {
		t.Errorf("Exchanged codes = %v", oauth.codes)
	}
	if !tokenService.IsAuthorized(context.Background()) {
		t.Error("Expected the calendar to be authorized after the callback")
	}
}

func TestAuthCallback_WrongState(t *testing.T) {
	h, tokenService := newTestAuthHandler(t, &stubOAuth{})

	authorize(t, h)

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state=forged&code=the-code", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Callback status = %d, want 400", rec.Code)
	}
	if tokenService.IsAuthorized(context.Background()) {
		t.Error("Forged state must not authorize the calendar")
	}
}

func TestAuthCallback_StateIsSingleUse(t *testing.T) {
	oauth := &stubOAuth{creds: &calendar.Credentials{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}}
	h, _ := newTestAuthHandler(t, oauth)

	state := authorize(t, h)
	target := "/auth/callback?state=" + url.QueryEscape(state) + "&code=the-code"

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("First callback status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Replayed callback status = %d, want 400", rec.Code)
	}
}

func TestAuthCallback_MissingCode(t *testing.T) {
	h, _ := newTestAuthHandler(t, &stubOAuth{})

	state := authorize(t, h)

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?state="+url.QueryEscape(state), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Callback status = %d, want 400", rec.Code)
	}
}

func TestAuthCallback_ExchangeFailure(t *testing.T) {
	h, tokenService := newTestAuthHandler(t, &stubOAuth{err: errors.New("invalid_code")})

	state := authorize(t, h)

	rec := httptest.NewRecorder()
	h.Callback(rec, httptest.NewRequest(http.MethodGet,
		"/auth/callback?state="+url.QueryEscape(state)+"&code=bad-code", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Callback status = %d, want 502", rec.Code)
	}
	if tokenService.IsAuthorized(context.Background()) {
		t.Error("Failed exchange must not authorize the calendar")
	}
}

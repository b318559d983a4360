package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	domainRepo "github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/repository"
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/infrastructure/calendar"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrAuthentication means the credential refresh failed; the calling
	// operation is fatal and the re-authorization flow is required.
	ErrAuthentication = errors.New("calendar authentication failed")
	// ErrNotAuthorized means no credential set was ever stored.
	ErrNotAuthorized = errors.New("calendar is not authorized yet")
)

// expirySkew treats tokens about to lapse as already expired, so a token
// never dies mid-request.
const expirySkew = time.Minute

// OAuthClient is the token half of the external calendar provider.
type OAuthClient interface {
	ExchangeAuthCode(ctx context.Context, code string) (*calendar.Credentials, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*calendar.Credentials, error)
}

// TokenService keeps the singleton calendar credential fresh. Every
// calendar operation asks it for a valid access token first.
type TokenService struct {
	db        *gorm.DB
	log       *logrus.Logger
	tokenRepo domainRepo.AuthTokenRepository
	oauth     OAuthClient
	nowFn     func() time.Time
}

func NewTokenService(db *gorm.DB, log *logrus.Logger, tokenRepo domainRepo.AuthTokenRepository, oauth OAuthClient) *TokenService {
	return &TokenService{
		db:        db,
		log:       log,
		tokenRepo: tokenRepo,
		oauth:     oauth,
		nowFn:     time.Now,
	}
}

// EnsureValidToken returns a usable access token, refreshing and persisting
// the credential set first if it expired.
func (s *TokenService) EnsureValidToken(ctx context.Context) (string, error) {
	token, err := s.tokenRepo.Get(s.db.WithContext(ctx))
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", ErrNotAuthorized
	}

	if !token.IsExpired(s.nowFn(), expirySkew) {
		return token.AccessToken, nil
	}

	creds, err := s.oauth.RefreshAccessToken(ctx, token.RefreshToken)
	if err != nil {
		s.log.Errorf("Failed to refresh calendar token: %+v", err)
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if err := s.save(ctx, creds); err != nil {
		return "", err
	}

	s.log.Info("Calendar access token refreshed")
	return creds.AccessToken, nil
}

// StoreAuthCode completes the authorization flow: exchanges the code and
// persists the resulting credential set, replacing any previous one.
func (s *TokenService) StoreAuthCode(ctx context.Context, code string) error {
	creds, err := s.oauth.ExchangeAuthCode(ctx, code)
	if err != nil {
		s.log.Errorf("Failed to exchange authorization code: %+v", err)
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if err := s.save(ctx, creds); err != nil {
		return err
	}

	s.log.Info("Calendar authorization completed")
	return nil
}

// IsAuthorized reports whether a credential set exists at all.
func (s *TokenService) IsAuthorized(ctx context.Context) bool {
	token, err := s.tokenRepo.Get(s.db.WithContext(ctx))
	return err == nil && token != nil
}

func (s *TokenService) save(ctx context.Context, creds *calendar.Credentials) error {
	return s.tokenRepo.Save(s.db.WithContext(ctx), &entity.AuthToken{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
	})
}

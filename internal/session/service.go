package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"movie-auth/internal/password"
	"movie-auth/internal/token"
)

// Rotation TTLs for the refresh flow. Login uses caller-supplied TTLs
// instead; the asymmetry is inherited from the deployed API and kept.
const (
	RotatedAccessTTL  = 10 * time.Minute
	RotatedRefreshTTL = 24 * time.Hour
)

// Store is the credential store contract the service orchestrates against.
// *Repository is the Postgres implementation.
type Store interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (User, error)
	Create(ctx context.Context, email, passwordHash string) error
	SetRefreshToken(ctx context.Context, email string, refreshToken *string) error
	ClearRefreshToken(ctx context.Context, refreshToken string) (int64, error)
	UpdateProfile(ctx context.Context, email string, fields ProfileFields) (ProfileFields, error)
}

// TokenIssuer mints and verifies the two token kinds. *token.Issuer is the
// JWT implementation.
type TokenIssuer interface {
	IssueAccess(email string, ttl time.Duration) (string, int64, error)
	IssueRefresh(email string, ttl time.Duration) (string, int64, error)
	Decode(tokenString string) (token.Claims, error)
	VerifyAccess(tokenString string) (token.Claims, error)
	VerifyRefresh(tokenString string) (token.Claims, error)
}

// Service is the session manager. It holds no cross-request state; the store
// is the single source of truth, so instances scale horizontally.
type Service struct {
	store  Store
	tokens TokenIssuer
}

func NewService(store Store, tokens TokenIssuer) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates a new credential row. No tokens are issued.
func (s *Service) Register(ctx context.Context, email, pass string) error {
	if email == "" || pass == "" {
		return newError(KindBadRequest, msgCredentialsRequired)
	}

	hash, err := password.Hash(pass)
	if err != nil {
		return internalError("failed to hash password", err)
	}

	if err := s.store.Create(ctx, email, hash); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return newError(KindConflict, msgUserExists)
		}
		return internalError("failed to create user", err)
	}

	return nil
}

// Login verifies credentials and issues a token pair with caller-supplied
// TTLs, persisting the refresh token on the user row (overwriting any prior
// one). A missing email and a wrong password produce the same message so the
// response never reveals which was wrong.
func (s *Service) Login(ctx context.Context, email, pass string, bearerTTLSeconds, refreshTTLSeconds int64) (TokenPair, error) {
	if email == "" || pass == "" {
		return TokenPair{}, newError(KindBadRequest, msgCredentialsRequired)
	}

	if bearerTTLSeconds <= 0 {
		bearerTTLSeconds = int64(RotatedAccessTTL.Seconds())
	}
	if refreshTTLSeconds <= 0 {
		refreshTTLSeconds = int64(RotatedRefreshTTL.Seconds())
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, newError(KindUnauthorized, msgIncorrectCredentials)
		}
		return TokenPair{}, internalError("failed to look up user", err)
	}

	if !password.Verify(pass, user.PasswordHash) {
		return TokenPair{}, newError(KindUnauthorized, msgIncorrectCredentials)
	}

	return s.issuePair(ctx, email,
		time.Duration(bearerTTLSeconds)*time.Second,
		time.Duration(refreshTTLSeconds)*time.Second)
}

// Refresh exchanges a still-valid refresh token for a new pair with fixed
// TTLs. Rotation is unconditional: the presented token stops matching the
// row the moment the new one is persisted, even if it had time left.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, newError(KindBadRequest, msgRefreshRequired)
	}

	if _, err := s.store.GetByRefreshToken(ctx, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, newError(KindUnauthorized, msgUserNotFound)
		}
		return TokenPair{}, internalError("failed to look up refresh token", err)
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return TokenPair{}, newError(KindUnauthorized, msgTokenExpired)
		}
		return TokenPair{}, newError(KindUnauthorized, msgInvalidToken)
	}

	return s.issuePair(ctx, claims.Email, RotatedAccessTTL, RotatedRefreshTTL)
}

// Logout revokes the presented refresh token by nulling the stored value. A
// second logout with the same token finds no matching row and fails; that
// failure is the revocation signal.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return newError(KindBadRequest, msgRefreshRequired)
	}

	if _, err := s.tokens.VerifyRefresh(refreshToken); err != nil {
		if errors.Is(err, token.ErrExpired) {
			return newError(KindUnauthorized, msgTokenExpired)
		}
		return newError(KindUnauthorized, msgInvalidToken)
	}

	affected, err := s.store.ClearRefreshToken(ctx, refreshToken)
	if err != nil {
		return internalError("failed to clear refresh token", err)
	}
	if affected == 0 {
		return newError(KindInternal, msgTokenNotFound)
	}

	return nil
}

// Profile reads the profile for the path email. When the row holds a refresh
// token that still decodes, the full profile of the identity named inside
// that token is returned; session liveness alone is the capability here, no
// bearer token from the current request is consulted. Without a live token
// only the public fields are returned. This asymmetry is a deliberate
// privacy boundary of the API, not an oversight.
func (s *Service) Profile(ctx context.Context, email string) (Profile, bool, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, false, newError(KindNotFound, msgUserNotFound)
		}
		return Profile{}, false, internalError("failed to look up user", err)
	}

	if user.RefreshToken == nil {
		return fullProfile(user), false, nil
	}

	claims, err := s.tokens.Decode(*user.RefreshToken)
	if err != nil {
		return Profile{}, false, newError(KindUnauthorized, msgAuthHeaderNotFound)
	}

	authenticated, err := s.store.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, false, newError(KindNotFound, msgUserNotFound)
		}
		return Profile{}, false, internalError("failed to look up authenticated user", err)
	}

	return fullProfile(authenticated), true, nil
}

// UpdateProfile persists all four profile fields for the path email. The
// bearer token's signature is checked first, then its identity against the
// path email, and only then its expiry, so a mismatched identity always
// reports Forbidden even on a stale token.
func (s *Service) UpdateProfile(ctx context.Context, email string, fields ProfileFields, bearerToken string) (ProfileFields, error) {
	claims, verifyErr := s.tokens.VerifyAccess(bearerToken)
	if verifyErr != nil && !errors.Is(verifyErr, token.ErrExpired) {
		return ProfileFields{}, newError(KindUnauthorized, msgInvalidToken)
	}

	if claims.Email != email {
		return ProfileFields{}, newError(KindForbidden, msgForbidden)
	}

	if verifyErr != nil {
		return ProfileFields{}, newError(KindUnauthorized, msgTokenExpired)
	}

	updated, err := s.store.UpdateProfile(ctx, email, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProfileFields{}, newError(KindNotFound, msgUserNotFound)
		}
		return ProfileFields{}, internalError("failed to update profile", err)
	}

	return updated, nil
}

func (s *Service) issuePair(ctx context.Context, email string, accessTTL, refreshTTL time.Duration) (TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccess(email, accessTTL)
	if err != nil {
		return TokenPair{}, internalError("failed to issue access token", err)
	}

	refresh, refreshExp, err := s.tokens.IssueRefresh(email, refreshTTL)
	if err != nil {
		return TokenPair{}, internalError("failed to issue refresh token", err)
	}

	if err := s.store.SetRefreshToken(ctx, email, &refresh); err != nil {
		return TokenPair{}, internalError("failed to persist refresh token", err)
	}

	return TokenPair{
		BearerToken:  TokenDetails{Token: access, TokenType: "Bearer", ExpiresIn: accessExp},
		RefreshToken: TokenDetails{Token: refresh, TokenType: "Refresh", ExpiresIn: refreshExp},
	}, nil
}

package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired          = errors.New("token has expired")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrMalformed        = errors.New("token is malformed")
)

// Claims is the wire-level claim set shared by both token kinds. Access
// tokens carry their expiry in the registered exp claim; refresh tokens use
// the non-registered refresh_exp claim, which the parser does not validate
// and VerifyRefresh checks explicitly. Both field names are part of the
// public API contract and must not change.
//
// Every mint also carries iat and a unique jti. Without the nonce, two
// tokens for the same email in the same second would be byte-identical and
// rotation would silently keep the old token valid.
type Claims struct {
	Email      string `json:"email"`
	Exp        int64  `json:"exp,omitempty"`
	RefreshExp int64  `json:"refresh_exp,omitempty"`
	IssuedAt   int64  `json:"iat,omitempty"`
	ID         string `json:"jti,omitempty"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.Exp == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetSubject() (string, error)             { return "", nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// Issuer mints and verifies HS256-signed tokens with a process-wide secret
// injected at construction.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// IssueAccess returns a signed access token and its absolute expiry epoch,
// computed from the issuer's clock, not the caller's.
func (i *Issuer) IssueAccess(email string, ttl time.Duration) (string, int64, error) {
	now := i.now()
	exp := now.Add(ttl).Unix()
	id, err := uuid.NewV7()
	if err != nil {
		return "", 0, fmt.Errorf("generate token id: %w", err)
	}
	signed, err := i.sign(Claims{Email: email, Exp: exp, IssuedAt: now.Unix(), ID: id.String()})
	if err != nil {
		return "", 0, err
	}
	return signed, exp, nil
}

// IssueRefresh returns a signed refresh token and its absolute expiry epoch.
func (i *Issuer) IssueRefresh(email string, ttl time.Duration) (string, int64, error) {
	now := i.now()
	exp := now.Add(ttl).Unix()
	id, err := uuid.NewV7()
	if err != nil {
		return "", 0, fmt.Errorf("generate token id: %w", err)
	}
	signed, err := i.sign(Claims{Email: email, RefreshExp: exp, IssuedAt: now.Unix(), ID: id.String()})
	if err != nil {
		return "", 0, err
	}
	return signed, exp, nil
}

func (i *Issuer) sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode checks the signature and returns the embedded claims without any
// expiry validation beyond what the claim set itself mandates. For refresh
// tokens, whose expiry lives in refresh_exp, that means signature only.
func (i *Issuer) Decode(tokenString string) (Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			// Signature already checked; claims are still usable so the
			// caller can decide ordering between identity and expiry errors.
			return *claims, ErrExpired
		default:
			return Claims{}, ErrMalformed
		}
	}
	return *claims, nil
}

// VerifyAccess checks signature and the exp claim. A tampered token fails
// with ErrInvalidSignature before expiry is consulted. On ErrExpired the
// decoded claims are still returned.
func (i *Issuer) VerifyAccess(tokenString string) (Claims, error) {
	return i.Decode(tokenString)
}

// VerifyRefresh checks signature and then the refresh_exp claim.
func (i *Issuer) VerifyRefresh(tokenString string) (Claims, error) {
	claims, err := i.Decode(tokenString)
	if err != nil {
		return claims, err
	}
	if claims.RefreshExp != 0 && i.now().Unix() > claims.RefreshExp {
		return claims, ErrExpired
	}
	return claims, nil
}

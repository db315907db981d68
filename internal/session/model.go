package session

import "time"

// User is a row in the users table. Profile fields stay nil until the first
// authenticated profile update; RefreshToken is nil whenever no session is
// live.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	RefreshToken *string
	Firstname    *string
	Lastname     *string
	DOB          *string
	Address      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type TokenDetails struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// TokenPair is the login/refresh response body. ExpiresIn carries the
// absolute expiry epoch, matching the deployed API.
type TokenPair struct {
	BearerToken  TokenDetails `json:"bearerToken"`
	RefreshToken TokenDetails `json:"refreshToken"`
}

// ProfileFields is the full set of mutable profile attributes; all four are
// required on update.
type ProfileFields struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	DOB       string `json:"dob"`
	Address   string `json:"address"`
}

// Profile is the full profile view, returned when the target user has a live
// session.
type Profile struct {
	Email     string  `json:"email"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	DOB       *string `json:"dob"`
	Address   *string `json:"address"`
}

// PublicProfile is the reduced view returned when no session is live.
type PublicProfile struct {
	Email     string  `json:"email"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
}

// StoredToken pairs a user with their currently persisted refresh token; used
// by the maintenance sweep.
type StoredToken struct {
	Email        string
	RefreshToken string
}

func fullProfile(u User) Profile {
	return Profile{
		Email:     u.Email,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		DOB:       u.DOB,
		Address:   u.Address,
	}
}

func (p Profile) public() PublicProfile {
	return PublicProfile{
		Email:     p.Email,
		Firstname: p.Firstname,
		Lastname:  p.Lastname,
	}
}

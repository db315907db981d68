package maintenance

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-auth/internal/observability"
	"movie-auth/internal/session"
	"movie-auth/internal/token"
)

type fakeTokenStore struct {
	tokens  map[string]string // email -> stored refresh token
	cleared []string
}

func (f *fakeTokenStore) LiveRefreshTokens(_ context.Context, limit int) ([]session.StoredToken, error) {
	out := make([]session.StoredToken, 0, len(f.tokens))
	for email, t := range f.tokens {
		if len(out) == limit {
			break
		}
		out = append(out, session.StoredToken{Email: email, RefreshToken: t})
	}
	return out, nil
}

func (f *fakeTokenStore) SetRefreshToken(_ context.Context, email string, refreshToken *string) error {
	if refreshToken == nil {
		delete(f.tokens, email)
		f.cleared = append(f.cleared, email)
		return nil
	}
	f.tokens[email] = *refreshToken
	return nil
}

func newSweepServer(t *testing.T, store *fakeTokenStore, issuer *token.Issuer, secret string) *httptest.Server {
	t.Helper()

	handler := NewSweepHandler(store, issuer, observability.NewLoggerTo(io.Discard), secret, 100)
	server := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(server.Close)
	return server
}

func TestSweepRevokesDeadTokens(t *testing.T) {
	issuer := token.NewIssuer("test-secret")

	live, _, err := issuer.IssueRefresh("live@example.com", time.Hour)
	require.NoError(t, err)
	expired, _, err := issuer.IssueRefresh("dead@example.com", -time.Hour)
	require.NoError(t, err)

	store := &fakeTokenStore{tokens: map[string]string{
		"live@example.com": live,
		"dead@example.com": expired,
		"junk@example.com": "not-a-token",
	}}

	server := newSweepServer(t, store, issuer, "cron-secret")

	req, err := http.NewRequest(http.MethodPost, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer cron-secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []string{"dead@example.com", "junk@example.com"}, store.cleared)
	assert.Contains(t, store.tokens, "live@example.com")
}

func TestSweepRequiresSecret(t *testing.T) {
	issuer := token.NewIssuer("test-secret")
	store := &fakeTokenStore{tokens: map[string]string{}}

	server := newSweepServer(t, store, issuer, "cron-secret")

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSweepHiddenWithoutConfiguredSecret(t *testing.T) {
	issuer := token.NewIssuer("test-secret")
	store := &fakeTokenStore{tokens: map[string]string{}}

	server := newSweepServer(t, store, issuer, "")

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

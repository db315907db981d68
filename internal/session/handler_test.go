package session

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-auth/internal/token"
)

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	issuer := token.NewIssuer("test-secret")
	handler := NewHandler(NewService(store, issuer))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/register", handler.Register)
	mux.HandleFunc("POST /users/login", handler.Login)
	mux.HandleFunc("POST /users/refresh", handler.Refresh)
	mux.HandleFunc("POST /users/logout", handler.Logout)
	mux.HandleFunc("GET /users/{email}/profile", handler.Profile)
	mux.HandleFunc("PUT /users/{email}/profile", handler.UpdateProfile)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestRegisterEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/users/register",
		map[string]string{"email": "[email protected]", "password": "pw1"}, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "User created", body["message"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/users/register",
		map[string]string{"email": "[email protected]", "password": "pw1"}, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "User already exists", body["message"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/users/register",
		map[string]string{"email": "[email protected]"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Request body incomplete, both email and password are required", body["message"])
}

func TestSessionLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/users/register",
		map[string]string{"email": "[email protected]", "password": "pw1"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/users/login", map[string]any{
		"email":                   "[email protected]",
		"password":                "pw1",
		"bearerExpiresInSeconds":  600,
		"refreshExpiresInSeconds": 86400,
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	bearer := body["bearerToken"].(map[string]any)
	refresh := body["refreshToken"].(map[string]any)
	assert.Equal(t, "Bearer", bearer["token_type"])
	assert.Equal(t, "Refresh", refresh["token_type"])
	assert.NotEmpty(t, bearer["token"])
	assert.NotZero(t, refresh["expires_in"])

	refreshToken := refresh["token"].(string)

	resp, body = doJSON(t, http.MethodPost, server.URL+"/users/refresh",
		map[string]string{"refreshToken": refreshToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := body["refreshToken"].(map[string]any)["token"].(string)
	assert.NotEqual(t, refreshToken, rotated)

	// The pre-rotation token no longer matches any row.
	resp, body = doJSON(t, http.MethodPost, server.URL+"/users/refresh",
		map[string]string{"refreshToken": refreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "User not found", body["message"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/users/logout",
		map[string]string{"refreshToken": rotated}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["error"])
	assert.Equal(t, "Token successfully invalidated", body["message"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/users/logout",
		map[string]string{"refreshToken": rotated}, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Refresh token not found", body["message"])

	resp, body = doJSON(t, http.MethodPost, server.URL+"/users/logout",
		map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Request body incomplete, refresh token required", body["message"])
}

func TestLoginRejectionsShareMessage(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/users/register",
		map[string]string{"email": "[email protected]", "password": "pw1"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, wrongPass := doJSON(t, http.MethodPost, server.URL+"/users/login",
		map[string]string{"email": "[email protected]", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, unknown := doJSON(t, http.MethodPost, server.URL+"/users/login",
		map[string]string{"email": "ghost@example.com", "password": "pw1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Equal(t, wrongPass["message"], unknown["message"])
	assert.Equal(t, "Incorrect email or password", wrongPass["message"])
}

func TestProfileEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/users/register",
		map[string]string{"email": "[email protected]", "password": "pw1"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/users/login",
		map[string]any{"email": "[email protected]", "password": "pw1", "bearerExpiresInSeconds": 600, "refreshExpiresInSeconds": 86400}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access := body["bearerToken"].(map[string]any)["token"].(string)
	refreshToken := body["refreshToken"].(map[string]any)["token"].(string)

	fields := map[string]string{
		"firstname": "Evan",
		"lastname":  "You",
		"dob":       "1990-01-01",
		"address":   "1 Vue St",
	}

	// Missing body fields rejected before anything else.
	resp, body = doJSON(t, http.MethodPut, server.URL+"/users/[email protected]/profile",
		map[string]string{"firstname": "Evan"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Request body incomplete: firstName, lastName, dob, and address are required", body["message"])

	// Then the Authorization header.
	resp, body = doJSON(t, http.MethodPut, server.URL+"/users/[email protected]/profile", fields, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authorization header ('Bearer token') not found", body["message"])

	// Identity mismatch between token and path email.
	resp, body = doJSON(t, http.MethodPut, server.URL+"/users/other@example.com/profile", fields,
		map[string]string{"Authorization": "Bearer " + access})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", body["message"])

	resp, body = doJSON(t, http.MethodPut, server.URL+"/users/[email protected]/profile", fields,
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Evan", body["firstname"])
	assert.Equal(t, "1990-01-01", body["dob"])
	assert.Equal(t, "1 Vue St", body["address"])

	// Live session: full profile for anyone asking.
	resp, body = doJSON(t, http.MethodGet, server.URL+"/users/[email protected]/profile", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1990-01-01", body["dob"])
	assert.Equal(t, "1 Vue St", body["address"])

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/users/logout",
		map[string]string{"refreshToken": refreshToken}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Session gone: only public fields, dob/address not even present.
	resp, body = doJSON(t, http.MethodGet, server.URL+"/users/[email protected]/profile", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[email protected]", body["email"])
	assert.Equal(t, "Evan", body["firstname"])
	assert.NotContains(t, body, "dob")
	assert.NotContains(t, body, "address")

	resp, body = doJSON(t, http.MethodGet, server.URL+"/users/ghost@example.com/profile", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found", body["message"])
}

func TestInvalidJSONBody(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/users/login", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
)

const maxJSONBodyBytes = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email                   string `json:"email"`
	Password                string `json:"password"`
	BearerExpiresInSeconds  int64  `json:"bearerExpiresInSeconds"`
	RefreshExpiresInSeconds int64  `json:"refreshExpiresInSeconds"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if err := h.service.Register(r.Context(), body.Email, body.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": msgUserCreated})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeBody(w, r, &body) {
		return
	}

	pair, err := h.service.Login(r.Context(), body.Email, body.Password,
		body.BearerExpiresInSeconds, body.RefreshExpiresInSeconds)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !decodeBody(w, r, &body) {
		return
	}

	pair, err := h.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !decodeBody(w, r, &body) {
		return
	}

	if err := h.service.Logout(r.Context(), body.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"error":   false,
		"message": msgTokenInvalidated,
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")

	profile, full, err := h.service.Profile(r.Context(), email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if !full {
		writeJSON(w, http.StatusOK, profile.public())
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")

	var fields ProfileFields
	if !decodeBody(w, r, &fields) {
		return
	}
	if fields.Firstname == "" || fields.Lastname == "" || fields.DOB == "" || fields.Address == "" {
		writeError(w, http.StatusBadRequest, msgProfileRequired)
		return
	}

	bearer, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, msgAuthHeaderNotFound)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), email, fields, bearer)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	tokenStr := strings.TrimSpace(parts[1])
	if tokenStr == "" {
		return "", false
	}

	return tokenStr, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}

	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		if svcErr.Kind == KindInternal && svcErr.cause != nil {
			sentry.CaptureException(svcErr.cause)
		}
		writeError(w, svcErr.Kind.Status(), svcErr.Message)
		return
	}

	sentry.CaptureException(err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// writeError emits the upstream API's error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

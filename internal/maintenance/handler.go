package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"movie-auth/internal/observability"
	"movie-auth/internal/session"
	"movie-auth/internal/token"
)

// TokenStore is the slice of the credential store the sweep needs.
type TokenStore interface {
	LiveRefreshTokens(ctx context.Context, limit int) ([]session.StoredToken, error)
	SetRefreshToken(ctx context.Context, email string, refreshToken *string) error
}

type TokenVerifier interface {
	VerifyRefresh(tokenString string) (token.Claims, error)
}

type SweepResult struct {
	Scanned int `json:"scanned"`
	Revoked int `json:"revoked"`
}

// SweepHandler is a cron-triggered endpoint that nulls stored refresh tokens
// which no longer verify, so dead sessions stop granting full profile reads.
// Gated by a shared secret; hidden entirely when none is configured.
type SweepHandler struct {
	store      TokenStore
	tokens     TokenVerifier
	logger     *observability.Logger
	cronSecret string
	batchSize  int
}

func NewSweepHandler(store TokenStore, tokens TokenVerifier, logger *observability.Logger, cronSecret string, batchSize int) *SweepHandler {
	if batchSize <= 0 {
		batchSize = 500
	}

	return &SweepHandler{
		store:      store,
		tokens:     tokens,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
		batchSize:  batchSize,
	}
}

func (h *SweepHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	result, err := h.sweep(r.Context())
	if err != nil {
		h.logger.Error("session_sweep_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		return
	}

	h.logger.Info("session_sweep_completed", map[string]any{
		"scanned": result.Scanned,
		"revoked": result.Revoked,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": result,
	})
}

func (h *SweepHandler) sweep(ctx context.Context) (SweepResult, error) {
	stored, err := h.store.LiveRefreshTokens(ctx, h.batchSize)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(stored)}
	for _, t := range stored {
		if _, err := h.tokens.VerifyRefresh(t.RefreshToken); err == nil {
			continue
		}

		if err := h.store.SetRefreshToken(ctx, t.Email, nil); err != nil {
			return result, err
		}
		result.Revoked++
	}

	return result, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

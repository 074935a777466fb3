package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/railwake/railwake/internal/api/models"
	"github.com/railwake/railwake/internal/api/response"
	"github.com/railwake/railwake/internal/auth"
)

// PairHandler exchanges a device id for a long-lived bearer token. When a
// setup code is configured, pairing requires it; otherwise pairing is open,
// which is only acceptable behind a trusted network.
type PairHandler struct {
	tokens    *auth.TokenService
	setupCode string
	logger    zerolog.Logger
}

// NewPairHandler creates a new PairHandler.
func NewPairHandler(tokens *auth.TokenService, setupCode string, logger zerolog.Logger) *PairHandler {
	return &PairHandler{
		tokens:    tokens,
		setupCode: setupCode,
		logger:    logger,
	}
}

// Pair handles POST /v1/pair.
func (h *PairHandler) Pair(w http.ResponseWriter, r *http.Request) {
	var input models.PairRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if input.DeviceID == "" {
		response.BadRequest(w, r, "deviceId is required", nil)
		return
	}

	if h.setupCode != "" {
		if subtle.ConstantTimeCompare([]byte(input.SetupCode), []byte(h.setupCode)) != 1 {
			h.logger.Warn().Str("device_id", input.DeviceID).Msg("pairing rejected: bad setup code")
			response.Unauthorized(w, r, "invalid setup code")
			return
		}
	}

	token, expiresAt, err := h.tokens.GenerateDeviceToken(input.DeviceID)
	if err != nil {
		response.InternalError(w, r, "failed to issue device token")
		return
	}

	h.logger.Info().Str("device_id", input.DeviceID).Time("expires_at", expiresAt).Msg("device paired")

	response.JSON(w, r, http.StatusOK, models.PairResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		DeviceID:  input.DeviceID,
	})
}

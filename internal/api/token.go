package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenTTL bounds how long an issued room token stays valid.
const tokenTTL = 6 * time.Hour

// videoGrant mirrors the LiveKit video grant claim.
type videoGrant struct {
	Room         string `json:"room,omitempty"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Video videoGrant `json:"video"`
}

type tokenHandler struct {
	apiKey    string
	apiSecret string
	serverURL string
	logger    *slog.Logger
}

type tokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// issue mints a LiveKit room access token for the given identity and room.
func (h *tokenHandler) issue(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("identity")
	room := r.URL.Query().Get("room")
	if identity == "" || room == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "identity and room are required")
		return
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    h.apiKey,
			Subject:   identity,
			ID:        identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		Video: videoGrant{
			Room:         room,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.apiSecret))
	if err != nil {
		h.logger.Error("signing room token", "error", err, "identity", identity)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to sign token")
		return
	}

	h.logger.Info("room token issued", "identity", identity, "room", room)
	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, URL: h.serverURL})
}

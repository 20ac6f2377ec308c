package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rohits-web03/estately/internal/utils"
)

var ErrInvalidState = errors.New("invalid oauth state")

type oauthState struct {
	Nonce    string `json:"n"`
	Redirect string `json:"r,omitempty"`
	Expires  int64  `json:"e"`
}

// StateSigner produces OAuth state values of the form payload.signature,
// so the callback can trust what it sent without server-side storage.
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{key: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *StateSigner) sign(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Generate returns a state carrying redirect, a client-side path to land on
// after sign-in.
func (s *StateSigner) Generate(redirect string) (string, error) {
	nonce, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	raw, err := json.Marshal(oauthState{
		Nonce:    nonce,
		Redirect: redirect,
		Expires:  s.now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal state data: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.sign(payload), nil
}

// Decode verifies the signature and expiry and returns the redirect path.
func (s *StateSigner) Decode(state string) (string, error) {
	payload, sig, ok := strings.Cut(state, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return "", ErrInvalidState
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidState
	}
	var st oauthState
	if err := json.Unmarshal(raw, &st); err != nil {
		return "", ErrInvalidState
	}
	if s.now().Unix() > st.Expires {
		return "", ErrInvalidState
	}
	return st.Redirect, nil
}

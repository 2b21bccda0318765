package sidecar

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/hyperjump/agrafes/internal/apierr"
)

// TokenHeader is the header carrying the write-auth token (§4.J).
const TokenHeader = "X-Agrafes-Token"

// tokenModeOff, tokenModeAuto select the two non-literal token modes;
// any other mode string is the fixed token value itself.
const (
	tokenModeOff  = "off"
	tokenModeAuto = "auto"
)

// resolveToken turns the configured token_mode into the effective token.
// An empty return means no token is required.
func resolveToken(mode string) (string, error) {
	switch mode {
	case "", tokenModeOff:
		return "", nil
	case tokenModeAuto:
		return randomToken()
	default:
		return mode, nil
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// requireToken wraps a write-endpoint handler so it rejects requests
// missing or carrying a mismatched token. Read endpoints never use this
// wrapper (§4.J).
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next(w, r)
			return
		}
		got := r.Header.Get(TokenHeader)
		if got == "" || got != s.token {
			s.respondError(w, apierr.NewUnauthorized("missing or invalid "+TokenHeader))
			return
		}
		next(w, r)
	}
}

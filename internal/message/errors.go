package message

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
)

// Sentinel failure categories the presentation layer renders with distinct
// guidance. Generic failures pass through wrapped, without a sentinel.
var (
	ErrQuotaExceeded     = errors.New("api quota or rate limit exceeded")
	ErrInvalidCredential = errors.New("invalid or expired api key")
	ErrModelNotFound     = errors.New("model not found")
)

// Classify maps a backend failure to one of the sentinel categories using
// the HTTP status when available and string heuristics otherwise. The
// original error stays in the chain.
func Classify(err error, statusCode int) error {
	if err == nil {
		return nil
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return eris.Wrap(ErrQuotaExceeded, err.Error())
	case http.StatusUnauthorized, http.StatusForbidden:
		return eris.Wrap(ErrInvalidCredential, err.Error())
	case http.StatusNotFound:
		return eris.Wrap(ErrModelNotFound, err.Error())
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit"):
		return eris.Wrap(ErrQuotaExceeded, err.Error())
	case strings.Contains(msg, "api key") || strings.Contains(msg, "invalid_api_key") ||
		strings.Contains(msg, "expired") || strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		return eris.Wrap(ErrInvalidCredential, err.Error())
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return eris.Wrap(ErrModelNotFound, err.Error())
	}

	return eris.Wrap(err, "message: generation failed")
}

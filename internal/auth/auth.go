// Package auth resolves the bearer token presented during the session
// handshake.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvToken is the environment fallback consulted when neither an inline
// token nor a token file is configured.
const EnvToken = "ARIA_AUTH_TOKEN"

// ErrNoToken means no credential was found in any source.
var ErrNoToken = errors.New("no auth token: set endpoint.auth_token, endpoint.auth_token_path, or " + EnvToken)

// LoadToken resolves the bearer token. Precedence: the inline token, then
// the token file, then the environment. Whitespace is trimmed so a
// newline-terminated token file works as-is.
func LoadToken(inline, path string) (string, error) {
	if tok := strings.TrimSpace(inline); tok != "" {
		return tok, nil
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		tok := strings.TrimSpace(string(data))
		if tok == "" {
			return "", fmt.Errorf("token file %s is empty", path)
		}
		return tok, nil
	}

	if tok := strings.TrimSpace(os.Getenv(EnvToken)); tok != "" {
		return tok, nil
	}

	return "", ErrNoToken
}

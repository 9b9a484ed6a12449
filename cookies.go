package twitter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrSessionExpired is returned for saved sessions older than Config.SessionTTL.
var ErrSessionExpired = errors.New("session expired")

// cookieFile covers the flat credential files: a cookie-jar export
// ({"auth_token": ..., "ct0": ..., ...}) and a saved session, which adds saved_at.
type cookieFile struct {
	AuthToken string    `json:"auth_token"`
	CT0       string    `json:"ct0"`
	SavedAt   time.Time `json:"saved_at"`
}

// browserCookie is one entry of a browser extension export
// ([{"name": "auth_token", "value": ...}, ...]).
type browserCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func parseCookieFile(data []byte) (cookieFile, error) {
	var f cookieFile
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		var jar []browserCookie
		if err := json.Unmarshal(data, &jar); err != nil {
			return f, err
		}
		for _, c := range jar {
			switch c.Name {
			case "auth_token":
				f.AuthToken = c.Value
			case "ct0":
				f.CT0 = c.Value
			}
		}
		return f, nil
	}
	err := json.Unmarshal(data, &f)
	return f, err
}

// loadCookieFile reads auth_token and ct0 from path.
func loadCookieFile(path string, ttl time.Duration) (authToken, ct0 string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read cookies %s: %w", path, err)
	}
	f, err := parseCookieFile(data)
	if err != nil {
		return "", "", fmt.Errorf("parse cookies %s: %w", path, err)
	}
	if f.AuthToken == "" {
		return "", "", fmt.Errorf("cookies %s: no auth_token", path)
	}
	if !f.SavedAt.IsZero() && ttl > 0 && time.Since(f.SavedAt) > ttl {
		return "", "", fmt.Errorf("%w: %s saved %s ago", ErrSessionExpired, path, time.Since(f.SavedAt).Round(time.Minute))
	}
	return f.AuthToken, f.CT0, nil
}

// sessionName derives a session label from its cookie file name.
func sessionName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// OpenSession builds a Session from a cookie file.
func (c *Client) OpenSession(path string) (*Session, error) {
	authToken, ct0, err := loadCookieFile(path, c.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	s, err := c.NewSession(sessionName(path), authToken, ct0)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded session from disk", slog.String("session", s.Name))
	return s, nil
}

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"RobinhoodMCP/internal/upstream"
)

const cacheVersion = 1

// cacheFile is the on-disk session format.
type cacheFile struct {
	Version      int       `json:"version"`
	SavedAt      time.Time `json:"saved_at"`
	DeviceToken  string    `json:"device_token"`
	TokenType    string    `json:"token_type"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
}

// LoadCache reads a cached token. A missing file is os.ErrNotExist.
func LoadCache(path string) (*upstream.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c cacheFile
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode session cache: %w", err)
	}
	if c.Version != cacheVersion {
		return nil, fmt.Errorf("session cache version %d not supported", c.Version)
	}
	if c.AccessToken == "" {
		return nil, errors.New("session cache holds no access token")
	}
	return &upstream.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		ExpiresIn:    c.ExpiresIn,
		DeviceToken:  c.DeviceToken,
	}, nil
}

// SaveCache writes tok to path through a temp file in the same directory and
// a rename, so a failed write never replaces a good cache.
func SaveCache(path string, tok *upstream.Token) error {
	data, err := json.MarshalIndent(cacheFile{
		Version:      cacheVersion,
		SavedAt:      time.Now().UTC(),
		DeviceToken:  tok.DeviceToken,
		TokenType:    tok.TokenType,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// cacheModTime returns the modification time of path, or zero.
func cacheModTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Package fingerprint detects articles that were already ingested.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
)

// ErrEmptyURL is returned when an article has no URL to fingerprint
var ErrEmptyURL = errors.New("fingerprint: empty url")

// Compute returns the SHA-256 hex digest of the normalized URL
func Compute(rawURL string) (string, error) {
	norm := Normalize(rawURL)
	if norm == "" {
		return "", ErrEmptyURL
	}
	h := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(h[:]), nil
}

// Normalize canonicalizes a URL so trivially different links hash the same:
// lowercase scheme and host, no fragment, no utm_*/fbclid/gclid parameters,
// and no trailing slash.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}

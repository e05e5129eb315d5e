// Package registry queries an npm-compatible registry for published versions.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 10 * time.Second

// ErrNotFound is returned when the registry has no published version.
var ErrNotFound = errors.New("no published version")

// Client fetches package metadata. The zero value uses DefaultURL and
// DefaultTimeout.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
}

// New returns a client for baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{BaseURL: baseURL, Timeout: timeout}
}

// LatestVersion returns the version tagged latest for name.
func (c *Client) LatestVersion(name string) (string, error) {
	if name == "" {
		return "", errors.New("latest version: package name is empty")
	}
	endpoint := c.base() + "/" + url.PathEscape(name) + "/latest"

	resp, err := c.client().Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("fetch %s: status %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", fmt.Errorf("parse metadata for %s: %w", name, err)
	}
	if meta.Version == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	v, err := semver.StrictNewVersion(meta.Version)
	if err != nil {
		return "", fmt.Errorf("%s: registry returned version %q: %w", name, meta.Version, err)
	}
	return v.Original(), nil
}

func (c *Client) base() string {
	if c.BaseURL == "" {
		return DefaultURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

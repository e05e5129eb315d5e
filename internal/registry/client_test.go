package registry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serve(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second)
}

// TestLatestVersionOK verifies that the version field of /<name>/latest is returned.
func TestLatestVersionOK(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/left-pad/latest" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"left-pad","version":"1.3.0"}`))
	})

	v, err := c.LatestVersion("left-pad")
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if v != "1.3.0" {
		t.Errorf("version = %q, want 1.3.0", v)
	}
}

// TestLatestVersionScopedName verifies that the scope slash is escaped in the path.
func TestLatestVersionScopedName(t *testing.T) {
	var gotPath string
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"version":"2.0.0-beta.1"}`))
	})

	v, err := c.LatestVersion("@kb-labs/sdk")
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if v != "2.0.0-beta.1" {
		t.Errorf("version = %q", v)
	}
	if gotPath != "/@kb-labs%2Fsdk/latest" {
		t.Errorf("path = %q, want /@kb-labs%%2Fsdk/latest", gotPath)
	}
}

// TestLatestVersionNotFound verifies that a 404 maps to ErrNotFound.
func TestLatestVersionNotFound(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Not found"}`, http.StatusNotFound)
	})

	_, err := c.LatestVersion("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// TestLatestVersionEmpty verifies that a response without a version maps to ErrNotFound.
func TestLatestVersionEmpty(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x"}`))
	})

	_, err := c.LatestVersion("x")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// TestLatestVersionInvalidSemver verifies that a malformed version is rejected.
func TestLatestVersionInvalidSemver(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"latest"}`))
	})

	_, err := c.LatestVersion("x")
	if err == nil {
		t.Fatal("expected error for non-semver version")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("invalid version reported as ErrNotFound")
	}
}

// TestLatestVersionServerError verifies that other statuses are errors but not ErrNotFound.
func TestLatestVersionServerError(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.LatestVersion("x")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want non-NotFound failure", err)
	}
}

// TestLatestVersionUnreachable verifies a connection failure is returned.
func TestLatestVersionUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:0", 100*time.Millisecond)

	if _, err := c.LatestVersion("x"); err == nil {
		t.Error("expected error for unreachable registry")
	}
}

// TestLatestVersionEmptyName verifies that an empty name fails before any request.
func TestLatestVersionEmptyName(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})

	if _, err := c.LatestVersion(""); err == nil {
		t.Error("expected error for empty name")
	}
}

// TestZeroClientDefaults verifies the zero value falls back to the public registry.
func TestZeroClientDefaults(t *testing.T) {
	var c Client
	if got := c.base(); got != DefaultURL {
		t.Errorf("base() = %q, want %q", got, DefaultURL)
	}
	if got := c.client().Timeout; got != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultTimeout)
	}
	c.BaseURL = "https://npm.example.com/"
	if got := c.base(); got != "https://npm.example.com" {
		t.Errorf("base() = %q", got)
	}
}

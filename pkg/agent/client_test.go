package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lxmf-chat/pkg/config"
)

func TestNewBackendClientSendsToken(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	cl, err := NewBackendClient(config.BackendConfig{URL: ts.URL + "/", Token: "abc", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cl.Identities(context.Background()); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer abc" {
		t.Fatalf("authorization = %q", auth)
	}
	if cl.HTTPClient.Timeout != time.Second {
		t.Fatalf("timeout = %s", cl.HTTPClient.Timeout)
	}
}

func TestNewBackendClientRejectsBadCA(t *testing.T) {
	dir := t.TempDir()
	ca := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(ca, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewBackendClient(config.BackendConfig{URL: "https://x", CAFile: ca}); err == nil {
		t.Fatal("bad ca accepted")
	}
	if _, err := NewBackendClient(config.BackendConfig{URL: "https://x", CAFile: filepath.Join(dir, "missing.pem")}); err == nil {
		t.Fatal("missing ca accepted")
	}
}

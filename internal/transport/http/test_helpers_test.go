package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/netchat/netchat-server/internal/auth"
	"github.com/netchat/netchat-server/internal/config"
	"github.com/netchat/netchat-server/internal/core"
	"github.com/netchat/netchat-server/internal/store/credfile"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := credfile.New(filepath.Join(t.TempDir(), "users.txt"))
	if err != nil {
		t.Fatalf("open credential store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	gate := auth.NewGate(st, &auth.JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	})

	nop := zerolog.Nop()
	reg := core.NewRegistry(8)
	router := core.NewRouter(reg)
	dispatcher := core.NewDispatcher(reg, router, &nop)
	worker := core.NewWorker(reg, router, dispatcher, gate, &nop)

	cfg := config.Default()
	server := NewServer(cfg, gate, reg, worker, &nop)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		for _, v := range reg.Snapshot() {
			v.Close()
		}
		ts.Close()
	})
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeToken(t *testing.T, resp *http.Response) string {
	t.Helper()

	var out AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("empty token in auth response")
	}
	return out.Token
}

func registerUser(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()

	resp := postJSON(t, ts.URL+"/api/register", RegisterRequest{Username: username, Password: password})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}
	return decodeToken(t, resp)
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterworks/spwalk/internal/config"
	"github.com/chapterworks/spwalk/internal/history"
)

const (
	testOBOAccess       = "obo-access"
	testOBORefresh      = "obo-refresh"
	testRefreshedAccess = "refreshed-access"
	testDownloadURL     = "https://download.example.test/report.pdf?tempauth=x"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// identityServer answers the on-behalf-of and refresh legs and records the
// forms it received.
type identityServer struct {
	*httptest.Server
	mu    sync.Mutex
	forms []url.Values
	fail  atomic.Bool
}

func newIdentityServer(t *testing.T) *identityServer {
	t.Helper()

	s := &identityServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		s.mu.Lock()
		s.forms = append(s.forms, r.PostForm)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		if s.fail.Load() {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"assertion expired"}`)

			return
		}

		access, refresh := testOBOAccess, testOBORefresh
		if r.PostForm.Get("grant_type") == "refresh_token" {
			access, refresh = testRefreshedAccess, "next-refresh"
		}

		fmt.Fprintf(w, `{"token_type":"Bearer","expires_in":3600,"access_token":%q,"refresh_token":%q}`, access, refresh)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *identityServer) posted() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]url.Values(nil), s.forms...)
}

// graphServer serves a fixed site: drive D1 "Documents" holding folder F1
// (with subfolder F3 and two files) and the empty folder F2.
type graphServer struct {
	*httptest.Server
	hits      atomic.Int32
	mu        sync.Mutex
	authSeen  []string
	overrides map[string]func(w http.ResponseWriter)
}

func newGraphServer(t *testing.T) *graphServer {
	t.Helper()

	routes := map[string]string{
		"/sites/root/drives": `{"value":[{"id":"D1","name":"Documents","driveType":"documentLibrary"}]}`,
		"/sites/root/drives/D1/items/root/children": `{"value":[
			{"id":"F1","name":"Contracts","folder":{"childCount":3}},
			{"id":"F2","name":"Archive","folder":{"childCount":0}},
			{"id":"X1","name":"readme.pdf","file":{"mimeType":"application/pdf"}}
		]}`,
		"/sites/root/drives/D1/items/F1/children": `{"value":[
			{"id":"F3","name":"2024","folder":{"childCount":0}},
			{"id":"P1","name":"report.pdf","file":{"mimeType":"application/pdf"},
			 "@microsoft.graph.downloadUrl":"` + testDownloadURL + `"},
			{"id":"T1","name":"notes.txt","file":{"mimeType":"text/plain"}}
		]}`,
		"/sites/root/drives/D1/items/F3/children": `{"value":[]}`,
	}

	g := &graphServer{overrides: map[string]func(http.ResponseWriter){}}
	g.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.hits.Add(1)

		g.mu.Lock()
		g.authSeen = append(g.authSeen, r.Header.Get("Authorization"))
		override := g.overrides[r.URL.Path]
		g.mu.Unlock()

		if override != nil {
			override(w)
			return
		}

		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":"itemNotFound","message":"not found"}}`)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(g.Close)

	return g
}

func (g *graphServer) override(path string, fn func(w http.ResponseWriter)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.overrides[path] = fn
}

func (g *graphServer) authorizations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.authSeen...)
}

func testConfig(identityURL, graphURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Identity.ClientID = "client-id"
	cfg.Identity.ClientSecret = "client-secret"
	cfg.Identity.TokenURL = identityURL
	cfg.Graph.BaseURL = graphURL
	cfg.RateLimit.Mode = "none"

	return cfg
}

// fakeRecorder captures recorded runs.
type fakeRecorder struct {
	mu   sync.Mutex
	runs []history.Run
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, run history.Run) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.runs = append(f.runs, run)

	return run.ID, f.err
}

func (f *fakeRecorder) recorded() []history.Run {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]history.Run(nil), f.runs...)
}

func assertNoCalls(t *testing.T, id *identityServer, g *graphServer) {
	t.Helper()

	assert.Empty(t, id.posted(), "identity endpoint must not be called")
	assert.Zero(t, g.hits.Load(), "graph must not be called")
}

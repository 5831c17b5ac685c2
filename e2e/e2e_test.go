//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build binary to temp dir.
	tmpDir, err := os.MkdirTemp("", "spwalk-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}

	binaryPath = filepath.Join(tmpDir, "spwalk")

	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = findModuleRoot()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "building binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()

	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// findModuleRoot walks up from the current dir to find go.mod.
func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// e2e/ is one level below module root.
			return ".."
		}

		dir = parent
	}
}

// backends starts local stand-ins for the identity platform and Graph, and
// writes a config file pointing at them.
func backends(t *testing.T) string {
	t.Helper()

	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token_type":"Bearer","expires_in":3600,"access_token":"graph-access","refresh_token":"graph-refresh"}`)
	}))
	t.Cleanup(identity.Close)

	routes := map[string]string{
		"/sites/root/drives": `{"value":[{"id":"D1","name":"Documents"},{"id":"D2","name":"Archive"}]}`,
		"/sites/root/drives/D1/items/root/children": `{"value":[` +
			`{"id":"F1","name":"Contracts","folder":{"childCount":2}},` +
			`{"id":"P0","name":"loose.pdf","file":{"mimeType":"application/pdf"}}]}`,
		"/sites/root/drives/D1/items/F1/children": `{"value":[` +
			`{"id":"P1","name":"a.pdf","file":{"mimeType":"application/pdf"},"@microsoft.graph.downloadUrl":"https://dl.example.test/a"},` +
			`{"id":"X1","name":"notes.docx","file":{"mimeType":"application/msword"},"@microsoft.graph.downloadUrl":"https://dl.example.test/x"}]}`,
		"/sites/root/drives/D2/items/root/children": `{"value":[]}`,
	}

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer graph-access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(graphSrv.Close)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := fmt.Sprintf(`
[identity]
client_id = "e2e-client"
client_secret = "e2e-secret"
token_url = %q

[graph]
base_url = %q

[rate_limit]
mode = "none"

[history]
path = %q
`, identity.URL, graphSrv.URL, filepath.Join(dir, "history.db"))

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func command(cfgPath string, args ...string) *exec.Cmd {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"SPWALK_CONFIG="+cfgPath,
		"SPWALK_CLIENT_ID=",
		"SPWALK_CLIENT_SECRET=",
		"SPWALK_USER_TOKEN=",
	)

	return cmd
}

func runCLI(t *testing.T, cfgPath string, args ...string) (string, string) {
	t.Helper()

	cmd := command(cfgPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("CLI command %v failed: %v\nstdout: %s\nstderr: %s", args, err, stdout.String(), stderr.String())
	}

	return stdout.String(), stderr.String()
}

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	return addr
}

type forestNode struct {
	Name     string       `json:"name"`
	Children []forestNode `json:"children"`
}

type fileEntry struct {
	Name        string `json:"name"`
	DownloadURL string `json:"downloadUrl"`
}

func TestE2E_TreeAndHistory(t *testing.T) {
	cfgPath := backends(t)

	stdout, _ := runCLI(t, cfgPath, "--quiet", "--json", "tree", "--token", "user-token")

	var tree struct {
		RunID  string       `json:"runId"`
		Target string       `json:"target"`
		Forest []forestNode `json:"forest"`
		Files  []fileEntry  `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &tree))

	require.Len(t, tree.Forest, 2)
	assert.Equal(t, "Documents", tree.Forest[0].Name)
	assert.Equal(t, "Archive", tree.Forest[1].Name)
	assert.Equal(t, "Documents/Contracts", tree.Target)
	assert.Equal(t, []fileEntry{{Name: "a.pdf", DownloadURL: "https://dl.example.test/a"}}, tree.Files)

	stdout, _ = runCLI(t, cfgPath, "history")
	assert.Contains(t, stdout, "STARTED")
	assert.Contains(t, stdout, "cli")
	assert.Contains(t, stdout, "ok")
}

func TestE2E_ServeAccessToken(t *testing.T) {
	cfgPath := backends(t)
	addr := freeAddr(t)

	cmd := command(cfgPath, "serve", "--listen", addr)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	t.Cleanup(func() {
		_ = cmd.Process.Kill()
	})

	base := "http://" + addr

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond, "server did not become healthy: %s", stderr.String())

	resp, err := http.Post(base+"/accessToken", "application/json", strings.NewReader(`{"accessToken":"user-token"}`))
	require.NoError(t, err)

	var body struct {
		Message string       `json:"message"`
		Forest  []forestNode `json:"forest"`
		Files   []fileEntry  `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Access token flow complete", body.Message)
	require.Len(t, body.Forest, 2)
	assert.Len(t, body.Files, 1)

	resp, err = http.Post(base+"/accessToken", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))

	select {
	case err := <-done:
		assert.NoError(t, err, "stderr: %s", stderr.String())
	case <-time.After(20 * time.Second):
		t.Fatal("server did not exit after SIGTERM")
	}
}

func TestE2E_ServeWithoutCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	cmd := command(path, "serve", "--listen", freeAddr(t))

	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(out), "client_id and client_secret are required")
}

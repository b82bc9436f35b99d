package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(t.Context())
	if err != nil {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

func TestCLI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		fmt.Fprintf(w, "%s %s %s", r.Method, r.Header.Get("X-Token"), b)
	}))
	defer ts.Close()

	dir := t.TempDir()
	upload := filepath.Join(dir, "body.txt")
	if err := os.WriteFile(upload, []byte("file body"), 0o600); err != nil {
		t.Fatalf("writing upload: %v", err)
	}

	tests := map[string]struct {
		args []string
		want string
	}{
		"get": {
			args: []string{"get", ts.URL, "-H", "X-Token: abc", "--ephemeral"},
			want: "GET abc ",
		},
		"post": {
			args: []string{"get", ts.URL, "-X", "post", "-d", "payload", "--ephemeral", "--request-timeout", "5s"},
			want: "POST  payload",
		},
		"upload": {
			args: []string{"upload", ts.URL, upload, "--ephemeral", "--disable", "expensiveNetworkAccess"},
			want: "PUT  file body",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := run(t, tc.args...)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if diff := cmp.Diff(tc.want, out); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCLI_Download(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("downloaded content"))
	}))
	defer ts.Close()

	output := filepath.Join(t.TempDir(), "out.bin")
	if _, err := run(t, "download", ts.URL+"/file.bin", "-o", output, "--ephemeral"); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if diff := cmp.Diff("downloaded content", string(got)); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}
}

func TestCLI_InvalidFlags(t *testing.T) {
	tests := map[string][]string{
		"header":  {"get", "http://example.invalid", "-H", "no-colon"},
		"disable": {"get", "http://example.invalid", "--disable", "bluetooth"},
		"config":  {"get", "http://example.invalid", "--config", filepath.Join(t.TempDir(), "missing.yaml")},
		"args":    {"get"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := run(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCLI_DownloadNotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	output := filepath.Join(t.TempDir(), "out.bin")
	if _, err := run(t, "download", ts.URL, "-o", output, "--ephemeral"); err == nil {
		t.Error("expected status error")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("expected no output file, got %v", err)
	}
}

func TestCLI_DownloadChecksum(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer ts.Close()

	dir := t.TempDir()

	good := filepath.Join(dir, "good")
	if _, err := run(t, "download", ts.URL, "-o", good, "--ephemeral",
		"--sha256", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"); err != nil {
		t.Fatalf("run: %v", err)
	}

	bad := filepath.Join(dir, "bad")
	if _, err := run(t, "download", ts.URL, "-o", bad, "--ephemeral", "--sha256", "00"); err == nil {
		t.Error("expected checksum error")
	}
	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Errorf("expected no output file, got %v", err)
	}
}

package httpsession_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/adamwoolhether/httpsession"
	"github.com/adamwoolhether/httpsession/session"
)

func ExampleNew() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"msg":"hello"}`)
	}))
	defer ts.Close()

	s := httpsession.New(session.Ephemeral, session.RequestTimeout(5*time.Second))
	defer s.FinishTasksAndInvalidate()

	b, _, err := s.Data(context.Background(), session.NewRequest(ts.URL, http.MethodGet))
	if err != nil {
		fmt.Println("data error:", err)
		return
	}

	fmt.Println(string(b))
	// Output: {"msg":"hello"}
}

func ExampleNewFromFile() {
	dir, err := os.MkdirTemp("", "httpsession")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "session.yaml")
	if err := os.WriteFile(path, []byte("preset: ephemeral\ntimeouts:\n  request: 30s\n"), 0o600); err != nil {
		fmt.Println(err)
		return
	}

	s, closeFn, err := httpsession.NewFromFile(context.Background(), path, session.ResourceTimeout(time.Minute))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer closeFn()
	defer s.FinishTasksAndInvalidate()

	cfg := s.Configuration()
	fmt.Println(cfg.Kind, cfg.TimeoutForRequest, cfg.TimeoutForResource)
	// Output: ephemeral 30s 1m0s
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/torosent/capfire/internal/config"
	"github.com/torosent/capfire/internal/output"
	"github.com/torosent/capfire/internal/search"
)

const testKeyEnv = "CAPFIRE_TEST_CEILING_KEY"

func baseArgs(t *testing.T, url string) []string {
	t.Helper()
	return []string{
		"--base-url", url,
		"--endpoint", "search/",
		"--env-file", filepath.Join(t.TempDir(), "none.env"),
		"--api-key-env", testKeyEnv,
		"--pause", "0s",
		"--timeout", "2",
		"--requests", "4",
		"--no-progress",
	}
}

func statusServer(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
}

func decodeResults(t *testing.T, data []byte) output.SearchResults {
	t.Helper()
	var res output.SearchResults
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, data)
	}
	return res
}

func TestCeilingUnknownWhenEverythingPasses(t *testing.T) {
	server := statusServer(http.StatusOK)
	defer server.Close()
	t.Setenv(testKeyEnv, "abc")

	var stdout, stderr bytes.Buffer
	args := append(baseArgs(t, server.URL), "--max", "8", "--json-output")
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v\nstderr: %s", err, stderr.String())
	}

	res := decodeResults(t, stdout.Bytes())
	if !res.Result.Found || !res.Result.CeilingUnknown || res.Result.BestKnownGood != 8 {
		t.Fatalf("unexpected result %+v", res.Result)
	}
	if !strings.HasPrefix(res.MaxConcurrency, ">= 8") {
		t.Errorf("summary = %q", res.MaxConcurrency)
	}
}

func TestNotFoundIsNotAnError(t *testing.T) {
	server := statusServer(http.StatusServiceUnavailable)
	defer server.Close()
	t.Setenv(testKeyEnv, "abc")

	var stdout, stderr bytes.Buffer
	args := append(baseArgs(t, server.URL), "--max", "16", "--json-output")
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	res := decodeResults(t, stdout.Bytes())
	if res.Result.Found || res.Result.BestKnownGood != 0 {
		t.Fatalf("expected no passing level, got %+v", res.Result)
	}
	if !strings.HasPrefix(res.MaxConcurrency, "not found") {
		t.Errorf("summary = %q", res.MaxConcurrency)
	}
}

func TestLinearHumanOutput(t *testing.T) {
	server := statusServer(http.StatusOK)
	defer server.Close()
	t.Setenv(testKeyEnv, "abc")

	var stdout, stderr bytes.Buffer
	args := append(baseArgs(t, server.URL),
		"--method", "linear", "--start", "1", "--max", "5", "--step", "2", "--verbose", "--verify")
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"Testing concurrency level: 1",
		"Testing concurrency level: 3",
		"Testing concurrency level: 5",
		"Concurrency 5: 100.0% success - PASSED",
		"TESTED LEVELS",
		"FINAL VERIFICATION TEST",
		"Successful Requests: 8/8",
		"SUMMARY",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSLAIsApplied(t *testing.T) {
	server := statusServer(http.StatusOK)
	defer server.Close()
	t.Setenv(testKeyEnv, "abc")

	var stdout, stderr bytes.Buffer
	args := append(baseArgs(t, server.URL), "--max", "4", "--json-output", "--sla", "requests:count < 0")
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if res := decodeResults(t, stdout.Bytes()); res.Result.Found {
		t.Fatalf("an unsatisfiable SLA must fail every level, got %+v", res.Result)
	}
}

func TestFatalErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"--base-url", "http://127.0.0.1:1", "--start", "10", "--max", "5"}, &stdout, &stderr)
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for degenerate range, got %v", err)
	}

	t.Setenv(testKeyEnv, "")
	err = run(context.Background(), baseArgs(t, "http://127.0.0.1:1"), &stdout, &stderr)
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}

	t.Setenv(testKeyEnv, "abc")
	err = run(context.Background(), append(baseArgs(t, "http://127.0.0.1:1"), "--sla", "bogus"), &stdout, &stderr)
	if !errors.Is(err, search.ErrInvalidOptions) {
		t.Fatalf("expected ErrInvalidOptions for a bad SLA, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	server := statusServer(http.StatusOK)
	defer server.Close()
	err = run(ctx, append(baseArgs(t, server.URL), "--max", "4"), &stdout, &stderr)
	if !errors.Is(err, search.ErrSearchAborted) {
		t.Fatalf("expected ErrSearchAborted on cancellation, got %v", err)
	}
}

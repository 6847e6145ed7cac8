package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRequestCommand(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"blocking", "cooperative"} {
		t.Run(mode, func(t *testing.T) {
			t.Parallel()

			var method, query, body, auth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				query = r.URL.Query().Get("db")
				auth = r.Header.Get("X-Token")
				buf := new(bytes.Buffer)
				_, _ = buf.ReadFrom(r.Body)
				body = buf.String()
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			args := []string{"request", "write",
				"--url", server.URL,
				"--method", "post",
				"--param", "db=telemetry",
				"--header", "X-Token: abc",
				"--data", "cpu value=1",
				"--expect", "204",
			}
			if mode == "cooperative" {
				args = append(args, "--cooperative")
			}

			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !strings.Contains(out, "HTTP 204") {
				t.Errorf("expected status in output, got %q", out)
			}

			if method != http.MethodPost || query != "telemetry" || body != "cpu value=1" || auth != "abc" {
				t.Errorf("unexpected request %s db=%s body=%q token=%q", method, query, body, auth)
			}
		})
	}
}

func TestRequestCommand_ConfigFile(t *testing.T) {
	t.Parallel()

	var db string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		db = r.URL.Query().Get("db")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results":[{}]}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "influx.yaml")
	cfg := "base_url: " + server.URL + "\nretries: 1\ndatabase: telemetry\n"
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "request", "query", "--config", path, "--param", "db=telemetry")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, `{"results":[{}]}`) {
		t.Errorf("expected body in output, got %q", out)
	}

	if db != "telemetry" {
		t.Errorf("expected db param, got %q", db)
	}
}

func TestPingCommand(t *testing.T) {
	t.Parallel()

	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	out, err := execute(t, "ping", "--url", server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path != "/ping" || !strings.Contains(out, "HTTP 204") {
		t.Errorf("unexpected ping %s: %q", path, out)
	}
}

func TestRequestCommand_Errors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unable to parse"}`))
	}))
	t.Cleanup(server.Close)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing url", []string{"request", "query"}, "base URL must be set"},
		{"bad param", []string{"request", "query", "--url", server.URL, "--param", "novalue"}, "invalid --param"},
		{"client error", []string{"request", "write", "--url", server.URL}, "unable to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteCommand(t *testing.T) {
	t.Parallel()

	var query, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	out, err := execute(t, "write", "cpu",
		"--url", server.URL,
		"--db", "telemetry",
		"--tag", "host=a",
		"--field", "value=0.5",
		"--time", "1700000000",
		"--precision", "s",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "HTTP 204") {
		t.Errorf("expected status in output, got %q", out)
	}

	if query != "db=telemetry&precision=s" {
		t.Errorf("unexpected query %q", query)
	}

	if strings.TrimSpace(body) != "cpu,host=a value=0.5 1700000000" {
		t.Errorf("unexpected line protocol %q", body)
	}
}

func TestWriteCommand_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing db", []string{"write", "cpu", "--url", "http://localhost:8086", "--field", "v=1"}, "--db is required"},
		{"missing field", []string{"write", "cpu", "--url", "http://localhost:8086", "--db", "x"}, "at least one --field"},
		{"bad precision", []string{"write", "cpu", "--url", "http://localhost:8086", "--db", "x", "--field", "v=1", "--precision", "h"}, "unknown precision"},
		{"bad tag", []string{"write", "cpu", "--url", "http://localhost:8086", "--db", "x", "--field", "v=1", "--tag", "host"}, "invalid --tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFieldValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want interface{}
	}{
		{"3i", int64(3)},
		{"0.5", 0.5},
		{"12", float64(12)},
		{"true", true},
		{"idle", "idle"},
		{"xi", "xi"},
	}

	for _, tt := range tests {
		if got := fieldValue(tt.in); got != tt.want {
			t.Errorf("fieldValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

package transport

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewCall_Defaults(t *testing.T) {
	t.Parallel()

	call := newCall("query", nil)

	if call.Path != "query" {
		t.Errorf("expected path=query, got %s", call.Path)
	}

	if call.Method != "GET" {
		t.Errorf("expected method=GET, got %s", call.Method)
	}

	if call.ExpectedStatus != 200 {
		t.Errorf("expected expected status=200, got %d", call.ExpectedStatus)
	}

	if call.Params != nil || call.Headers != nil || call.Body != nil {
		t.Errorf("expected unset params, headers and body, got %+v", call)
	}
}

func TestNewCall_EmptyMethodIgnored(t *testing.T) {
	t.Parallel()

	call := newCall("query", []RequestOption{WithMethod("")})

	if call.Method != "GET" {
		t.Errorf("expected method=GET, got %s", call.Method)
	}
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("http://localhost:8086", WithRequestHeader("X-Default", "1"))

	t.Run("defaults from config", func(t *testing.T) {
		t.Parallel()

		p, err := prepare(newCall("write", nil), cfg.snapshot())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if p.url != "http://localhost:8086/write" {
			t.Errorf("unexpected url %s", p.url)
		}

		if p.params == nil || len(p.params) != 0 {
			t.Errorf("expected empty params, got %v", p.params)
		}

		if p.headers["X-Default"] != "1" {
			t.Errorf("expected default headers, got %v", p.headers)
		}

		if p.body != nil {
			t.Errorf("expected nil body, got %q", p.body)
		}
	})

	t.Run("per-call headers replace defaults", func(t *testing.T) {
		t.Parallel()

		call := newCall("write", []RequestOption{WithRequestHeaders(map[string]string{"X-Call": "2"})})

		p, err := prepare(call, cfg.snapshot())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(p.headers) != 1 || p.headers["X-Call"] != "2" {
			t.Errorf("expected only per-call headers, got %v", p.headers)
		}
	})
}

func TestEncodeBody_Structured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
	}{
		{"map", map[string]any{"b": 1, "a": []int{1, 2}, "c": "<tag>"}},
		{"slice", []any{"cpu", 1.5, true, nil}},
		{"nested", map[string]any{"points": []map[string]any{{"measurement": "cpu", "fields": map[string]float64{"value": 0.64}}}}},
		{"struct", struct {
			Name string `json:"name"`
		}{Name: "telemetry"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := encodeBody(tt.body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want, err := stdjson.Marshal(tt.body)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			if !bytes.Equal(got, want) {
				t.Errorf("expected %s, got %s", want, got)
			}
		})
	}
}

func TestEncodeBody_PassThrough(t *testing.T) {
	t.Parallel()

	raw := []byte("cpu,host=a value=1 1700000000000000000")

	got, err := encodeBody(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if &got[0] != &raw[0] {
		t.Error("expected byte bodies to be passed through untouched")
	}

	got, err = encodeBody("cpu value=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(got) != "cpu value=2" {
		t.Errorf("expected string body unchanged, got %q", got)
	}

	got, err = encodeBody(nil)
	if err != nil || got != nil {
		t.Errorf("expected nil body, got %q, %v", got, err)
	}
}

func TestEncodeBody_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := encodeBody(map[string]any{"ch": make(chan int)})
	if err == nil {
		t.Fatal("expected error for unencodable body")
	}

	if !strings.Contains(err.Error(), "encoding request body") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		expected int
		want     string // "ok", "server", "client"
	}{
		{"expected 200", 200, 200, "ok"},
		{"expected 204", 204, 204, "ok"},
		{"unexpected 204", 204, 200, "client"},
		{"not found", 404, 200, "client"},
		{"redirect", 302, 200, "client"},
		{"internal error", 500, 200, "server"},
		{"bad gateway", 502, 200, "server"},
		{"server error even when expected", 503, 503, "server"},
		{"upper bound", 599, 200, "server"},
		{"above server range", 600, 200, "client"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body := []byte(`{"error":"details"}`)
			resp, err := classify(&Response{StatusCode: tt.status, Body: body}, tt.expected)

			var (
				serverErr *ServerError
				clientErr *ClientError
			)

			switch tt.want {
			case "ok":
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if resp.StatusCode != tt.status || !bytes.Equal(resp.Body, body) {
					t.Errorf("unexpected response %+v", resp)
				}
			case "server":
				if !errors.As(err, &serverErr) {
					t.Fatalf("expected ServerError, got %v", err)
				}
				if serverErr.StatusCode != tt.status || !bytes.Equal(serverErr.Body, body) {
					t.Errorf("unexpected server error %+v", serverErr)
				}
			case "client":
				if !errors.As(err, &clientErr) {
					t.Fatalf("expected ClientError, got %v", err)
				}
				if clientErr.StatusCode != tt.status || !bytes.Equal(clientErr.Body, body) {
					t.Errorf("unexpected client error %+v", clientErr)
				}
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"json error field", &ClientError{StatusCode: 400, Body: []byte(`{"error": "database not found: x"}`)}, "client error (HTTP 400): database not found: x"},
		{"json without error field", &ClientError{StatusCode: 401, Body: []byte(`{"message":"nope"}`)}, `client error (HTTP 401): {"message":"nope"}`},
		{"plain text", &ServerError{StatusCode: 500, Body: []byte("Internal Server Error")}, "server error (HTTP 500): Internal Server Error"},
		{"empty body", &ServerError{StatusCode: 503}, "server error (HTTP 503): (empty error body)"},
		{"connection", &ConnectionError{Attempts: 4, Err: errors.New("refused")}, "connection failed after 4 attempt(s): refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

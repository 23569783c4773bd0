package server

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantMethod  string
		wantPath    string
		wantHeaders int
		wantErr     bool
	}{
		{"get", "GET / HTTP/1.1\r\nHost: localhost\r\nAccept: */*\r\n\r\n", "GET", "/", 2, false},
		{"post with body", "POST /items HTTP/1.1\r\nContent-Length: 2\r\n\r\n{}", "POST", "/items", 1, false},
		{"trailing NULs", "HEAD /x HTTP/1.1\r\n\r\n\x00\x00\x00", "HEAD", "/x", 0, false},
		{"no headers", "DELETE /a HTTP/1.1", "DELETE", "/a", 0, false},
		{"empty", "", "", "", 0, true},
		{"method only", "GET", "", "", 0, true},
		{"empty path", "GET  HTTP/1.1\r\n\r\n", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseRequest([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.Method != tt.wantMethod || req.Path != tt.wantPath {
				t.Errorf("expected %s %s, got %s %s", tt.wantMethod, tt.wantPath, req.Method, req.Path)
			}
			if len(req.Headers) != tt.wantHeaders {
				t.Errorf("expected %d headers, got %d", tt.wantHeaders, len(req.Headers))
			}
		})
	}
}

func TestRespond(t *testing.T) {
	tests := []struct {
		raw      string
		wantCode int
		wantBody string
	}{
		{"HEAD / HTTP/1.1\r\n\r\n", http.StatusOK, ""},
		{"GET / HTTP/1.1\r\n\r\n", http.StatusOK, `{"hello":"world","test":"ing"}`},
		{"POST / HTTP/1.1\r\n\r\n", http.StatusOK, `{"request_method": "POST"}`},
		{"PUT / HTTP/1.1\r\n\r\n", http.StatusMethodNotAllowed, `{"request_method": "PUT"}`},
		{`B"AD / HTTP/1.1` + "\r\n\r\n", http.StatusMethodNotAllowed, `{"request_method": "B\"AD"}`},
		{"garbage", http.StatusBadRequest, `{"error":"malformed request line"}`},
	}

	for _, tt := range tests {
		resp := respond([]byte(tt.raw))
		if resp.Code != tt.wantCode {
			t.Errorf("respond(%q) code = %d, want %d", tt.raw, resp.Code, tt.wantCode)
		}
		if resp.Body != tt.wantBody {
			t.Errorf("respond(%q) body = %s, want %s", tt.raw, resp.Body, tt.wantBody)
		}
	}
}

func TestResponseEncode(t *testing.T) {
	resp := response{Code: http.StatusMethodNotAllowed, Body: `{"a":"b"}`}
	expected := "HTTP/1.1 405 Method Not Allowed\r\nContent-Length: 9\r\n\r\n{\"a\":\"b\"}"

	if got := string(resp.encode()); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestHandleConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := handleConnection(server, 1024)
		server.Close()
		done <- result{code, err}
	}()

	if _, err := client.Write([]byte("GET /hello HTTP/1.1\r\nHost: test\r\n\r\n")); err != nil {
		t.Fatalf("failed to write request: %v", err)
	}
	raw, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.code != http.StatusOK {
		t.Errorf("expected code 200, got %d", res.code)
	}
	if !strings.HasPrefix(string(raw), "HTTP/1.1 200 OK\r\n") {
		t.Errorf("unexpected status line in %q", raw)
	}
	if !strings.HasSuffix(string(raw), `{"hello":"world","test":"ing"}`) {
		t.Errorf("unexpected body in %q", raw)
	}
}

func TestHandleConnectionClosedBeforeRequest(t *testing.T) {
	client, server := net.Pipe()
	client.Close()

	if _, err := handleConnection(server, 1024); !errors.Is(err, errEmptyRequest) {
		t.Errorf("expected errEmptyRequest when client closes without sending a request, got %v", err)
	}
	server.Close()
}

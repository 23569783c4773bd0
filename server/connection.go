package server

import (
	"PoolServer/builder"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
)

var (
	errMalformedRequestLine = errors.New("malformed request line")
	// errEmptyRequest means the peer closed the connection without sending anything.
	errEmptyRequest = errors.New("connection closed before a request was sent")
)

type request struct {
	Method  string
	Path    string
	Headers []string
}

type response struct {
	Code int
	Body string
}

// handleConnection reads one request with a single read, answers it with a single write
// and returns the status code sent.
func handleConnection(conn net.Conn, bufferSize int) (int, error) {
	buffer := make([]byte, bufferSize)
	n, err := conn.Read(buffer)
	if errors.Is(err, io.EOF) && n == 0 {
		return 0, errEmptyRequest
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to read request: %w", err)
	}

	resp := respond(buffer[:n])
	if _, err := conn.Write(resp.encode()); err != nil {
		return 0, fmt.Errorf("failed to write response: %w", err)
	}
	return resp.Code, nil
}

func respond(raw []byte) response {
	req, err := parseRequest(raw)
	if err != nil {
		return response{
			Code: http.StatusBadRequest,
			Body: jsonObject(map[string]string{"error": err.Error()}),
		}
	}
	return route(req)
}

func parseRequest(raw []byte) (*request, error) {
	text := strings.Trim(strings.ToValidUTF8(string(raw), "\uFFFD"), "\x00")
	lines := strings.Split(text, "\r\n")

	requestLine := strings.Split(lines[0], " ")
	if len(requestLine) < 2 || requestLine[0] == "" || requestLine[1] == "" {
		return nil, errMalformedRequestLine
	}

	var headers []string
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		headers = append(headers, line)
	}

	return &request{
		Method:  requestLine[0],
		Path:    requestLine[1],
		Headers: headers,
	}, nil
}

func route(req *request) response {
	switch req.Method {
	case http.MethodHead:
		return response{Code: http.StatusOK}
	case http.MethodGet:
		return response{
			Code: http.StatusOK,
			Body: jsonObject(map[string]string{"hello": "world", "test": "ing"}),
		}
	case http.MethodPost:
		return response{Code: http.StatusOK, Body: methodBody(req.Method)}
	default:
		return response{Code: http.StatusMethodNotAllowed, Body: methodBody(req.Method)}
	}
}

func methodBody(method string) string {
	b := builder.New(64)
	b.AppendString(`{"request_method": `)
	b.AppendBytes(jsonString(method))
	b.AppendByte('}')
	return string(b.Bytes())
}

// jsonObject renders a flat string map as a compact JSON object with sorted keys.
func jsonObject(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	b := builder.New(0)
	b.AppendByte('{')
	for i, key := range keys {
		if i > 0 {
			b.AppendByte(',')
		}
		b.AppendBytes(jsonString(key))
		b.AppendByte(':')
		b.AppendBytes(jsonString(fields[key]))
	}
	b.AppendByte('}')
	return string(b.Bytes())
}

func jsonString(s string) []byte {
	// Marshalling a string cannot fail.
	encoded, _ := json.Marshal(s)
	return encoded
}

func (r response) encode() []byte {
	b := builder.New(0)
	fmt.Fprintf(b, "HTTP/1.1 %d %s\r\n", r.Code, http.StatusText(r.Code))
	fmt.Fprintf(b, "Content-Length: %d\r\n\r\n", len(r.Body))
	b.AppendString(r.Body)
	return b.Bytes()
}

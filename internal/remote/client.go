package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// envelope is the common success/detail wrapper the upstream services use.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Detail  string          `json:"detail"`
}

// client is the shared HTTP plumbing for the per-service clients.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) client {
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// postFile uploads one file as multipart form data and decodes the JSON
// data payload into out.
func (c client) postFile(ctx context.Context, path, filename string, file []byte, out interface{}) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doJSON(req, out)
}

// postJSON sends a JSON payload and decodes the JSON data payload into out.
func (c client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req, out)
}

// doJSON executes the request and folds the response into the taxonomy:
// 2xx with a successful envelope decodes into out, 4xx or an envelope
// reporting failure becomes ErrRejected with the upstream detail,
// everything else becomes ErrUnavailable.
func (c client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return unavailable(err.Error())
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return unavailable(fmt.Sprintf("malformed response: %v", err))
	}

	// Some upstreams report failures inside a 200 envelope.
	if !env.Success {
		if env.Detail != "" {
			return rejected(resp.StatusCode, env.Detail)
		}
		return unavailable("response reports failure without detail")
	}

	data := env.Data
	if data == nil {
		return unavailable("response carries no data")
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return unavailable(fmt.Sprintf("malformed response data: %v", err))
		}
	}
	return nil
}

// postForArtifact sends a JSON payload and reads back a binary document.
// The suggested filename comes from the Content-Disposition header;
// fallback names a generic document when the header is absent.
func (c client) postForArtifact(ctx context.Context, path string, payload interface{}, fallback string) (*Artifact, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unavailable(err.Error())
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to read document body: %v", err))
	}

	filename := filenameFromHeader(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = fallback
	}

	return &Artifact{Filename: filename, Bytes: raw}, nil
}

// classifyStatus maps a non-2xx response onto the error taxonomy,
// surfacing the backend's detail message verbatim for rejections.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	message := strings.TrimSpace(string(raw))

	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Detail != "" {
		message = env.Detail
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return rejected(resp.StatusCode, message)
	}
	return unavailable(fmt.Sprintf("status %d", resp.StatusCode))
}

// filenameFromHeader extracts the filename parameter from a
// Content-Disposition header value.
func filenameFromHeader(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

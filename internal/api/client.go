// Package api uploads finished session recordings to a remote archive.
package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/starlance/firecontrol/pkg/core"
)

// UploadPath is the archive endpoint receiving session files.
const UploadPath = "/api/v1/sessions"

// Client talks to one archive server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck succeeds when the archive answers 200 on /healthcheck.
func (c *Client) Healthcheck(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthcheck", "", nil)
	if err != nil {
		return fmt.Errorf("healthcheck: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck: status %d", resp.StatusCode)
	}
	return nil
}

// Upload posts the recording at path with its metadata. The file is
// streamed, never read into memory whole.
func (c *Client) Upload(ctx context.Context, path string, meta core.UploadMetadata) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	fields := [][2]string{
		{"secret", c.apiKey},
		{"filename", name},
		{"sessionName", meta.SessionName},
		{"scenario", meta.Scenario},
		{"duration", strconv.FormatFloat(meta.Duration.Seconds(), 'f', 3, 64)},
		{"tag", meta.Tag},
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, fields, name, f))
	}()

	resp, err := c.do(ctx, http.MethodPost, UploadPath, form.FormDataContentType(), pr)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	default:
		return fmt.Errorf("upload: status %d", resp.StatusCode)
	}
}

// writeForm emits the metadata fields followed by the file part.
func writeForm(form *multipart.Writer, fields [][2]string, name string, file io.Reader) error {
	for _, kv := range fields {
		if err := form.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copying %s: %w", name, err)
	}
	return form.Close()
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

// Package client uploads images and files to an imgdrop server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MuhamedUsman/imgdrop/internal/domain"
)

const (
	uploadImage = "/upload-image"
	uploadFile  = "/upload-file"
	nameField   = "file_name"
)

// APIError is returned for every response that is not 200 OK.
type APIError struct {
	StatusCode int
	Message    string
	Err        string
}

func (e *APIError) Error() string {
	if e.Err != "" {
		return fmt.Sprintf("server returned status %d: %s (%s)", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	http    *http.Client
	baseURL string
	// sent as the Origin header when not empty
	origin string
}

type Option func(*Client)

// WithOrigin makes every request carry origin in its Origin header.
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

// WithTimeout bounds each request, uploads of large files need a generous one.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be an absolute http(s) url", baseURL)
	}
	c := &Client{
		http:    &http.Client{Timeout: 2 * time.Minute},
		baseURL: strings.TrimSuffix(u.String(), "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// UploadImage sends the image at path, the server always names it with a fresh uuid.
func (c *Client) UploadImage(ctx context.Context, path string) (domain.ImageUploadResponse, error) {
	var resp domain.ImageUploadResponse
	err := c.upload(ctx, uploadImage, "image", path, nil, &resp)
	return resp, err
}

// UploadFile sends the file at path. A nil name omits the file_name field so the
// server picks a uuid, otherwise the stored file is named *name plus the extension of path.
func (c *Client) UploadFile(ctx context.Context, path string, name *string) (domain.FileUploadResponse, error) {
	var resp domain.FileUploadResponse
	err := c.upload(ctx, uploadFile, "file", path, name, &resp)
	return resp, err
}

func (c *Client) upload(ctx context.Context, route, field, path string, name *string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	// the body is streamed, nothing is buffered besides the pipe
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, field, filepath.Base(path), f, name))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, pr)
	if err != nil {
		_ = pr.Close()
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return fmt.Errorf("uploading %q: request timed out", path)
		}
		return fmt.Errorf("uploading %q: %w", path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body domain.ErrorResponse
		if json.Unmarshal(b, &body) == nil && body.Message != "" {
			apiErr.Message, apiErr.Err = body.Message, body.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		return apiErr
	}
	if err = json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parsing upload response JSON: %w", err)
	}
	return nil
}

func writeMultipart(mw *multipart.Writer, field, filename string, src io.Reader, name *string) error {
	if name != nil {
		if err := mw.WriteField(nameField, *name); err != nil {
			return fmt.Errorf("writing %s field: %w", nameField, err)
		}
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err = io.Copy(part, src); err != nil {
		return fmt.Errorf("copying %q into request: %w", filename, err)
	}
	return mw.Close()
}

package client

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MuhamedUsman/imgdrop/internal/config"
	"github.com/MuhamedUsman/imgdrop/internal/domain"
	"github.com/MuhamedUsman/imgdrop/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, config.Layout) {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.BaseDir = t.TempDir()
	cfg.Storage.CreateDirs = true
	s, err := server.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})
	l, err := cfg.Layout()
	require.NoError(t, err)
	return ts, l
}

func writeTemp(t *testing.T, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, b, 0o600))
	return p
}

func TestUploadImage(t *testing.T) {
	ts, l := newTestServer(t)
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewGray(image.Rect(0, 0, 640, 480))))
	p := writeTemp(t, "cat.png", buf.Bytes())

	c, err := New(ts.URL + "/")
	require.NoError(t, err)
	resp, err := c.UploadImage(t.Context(), p)
	require.NoError(t, err)

	assert.Equal(t, domain.MsgImagesSaved, resp.Message)
	assert.True(t, strings.HasSuffix(resp.ImageName, ".png"))
	for _, dir := range l.Variants {
		assert.FileExists(t, filepath.Join(l.Images, dir, resp.ImageName))
	}
}

func TestUploadFile(t *testing.T) {
	ts, l := newTestServer(t)
	p := writeTemp(t, "scan.pdf", []byte("%PDF"))
	c, err := New(ts.URL, WithOrigin("https://example2.com"))
	require.NoError(t, err)

	name := "report"
	resp, err := c.UploadFile(t.Context(), p, &name)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", resp.FileName)
	require.NotNil(t, resp.CustomFileName)
	assert.Equal(t, "report", *resp.CustomFileName)
	assert.FileExists(t, filepath.Join(l.Files, "report.pdf"))

	resp, err = c.UploadFile(t.Context(), p, nil)
	require.NoError(t, err)
	assert.Nil(t, resp.CustomFileName)
	assert.NotEqual(t, "scan.pdf", resp.FileName)
}

func TestUploadErrors(t *testing.T) {
	ts, _ := newTestServer(t)
	p := writeTemp(t, "notes.txt", []byte("hello"))

	c, err := New(ts.URL, WithOrigin("https://evil.com"))
	require.NoError(t, err)
	_, err = c.UploadFile(t.Context(), p, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Not allowed by CORS", apiErr.Err)

	c, err = New(ts.URL)
	require.NoError(t, err)
	bad := "../x"
	_, err = c.UploadFile(t.Context(), p, &bad)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, domain.MsgInvalidFileName, apiErr.Message)

	_, err = c.UploadImage(t.Context(), p)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.MsgResizeFailed, apiErr.Message)

	_, err = c.UploadImage(t.Context(), filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUploadTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)
	p := writeTemp(t, "a.txt", []byte("a"))

	c, err := New(ts.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)
	_, err = c.UploadFile(context.Background(), p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestNew(t *testing.T) {
	for _, u := range []string{"", "localhost:3002", "ftp://host", "http://"} {
		_, err := New(u)
		assert.Error(t, err, "url %q", u)
	}
	_, err := New("http://localhost:3002")
	assert.NoError(t, err)
}

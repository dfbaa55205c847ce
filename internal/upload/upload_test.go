package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type part struct {
	field, filename, content string
}

func newMultipartRequest(t *testing.T, parts []part, fields map[string]string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	r := httptest.NewRequest(http.MethodPost, "/upload-file", body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

func newReceiver(t *testing.T) (*Receiver, string) {
	t.Helper()
	dir := t.TempDir()
	rc, err := NewReceiver(dir, 1<<20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, dir
}

func TestReceiveCustomName(t *testing.T) {
	rc, dir := newReceiver(t)
	r := newMultipartRequest(t,
		[]part{{"file", "scan.pdf", "%PDF-1.4"}},
		map[string]string{NameField: "report"},
	)

	st, err := rc.Receive(r, "file")
	require.NoError(t, err)
	defer r.MultipartForm.RemoveAll()

	assert.Equal(t, "report.pdf", st.Name)
	assert.Equal(t, "report", st.BaseName)
	assert.Equal(t, ".pdf", st.Ext)
	assert.Equal(t, "scan.pdf", st.OriginalName)
	assert.Equal(t, "report", st.CustomName)
	assert.True(t, st.HasCustomName)
	assert.EqualValues(t, len("%PDF-1.4"), st.Size)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), st.Path)

	b, err := os.ReadFile(st.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))
}

func TestReceiveGeneratedName(t *testing.T) {
	cases := map[string]map[string]string{
		"absent": nil,
		"empty":  {NameField: ""},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			rc, _ := newReceiver(t)
			r := newMultipartRequest(t, []part{{"image", "Photo.JPG", "jpeg"}}, fields)

			st, err := rc.Receive(r, "image")
			require.NoError(t, err)
			defer r.MultipartForm.RemoveAll()

			assert.Equal(t, ".JPG", st.Ext, "extension case must be preserved")
			assert.True(t, strings.HasSuffix(st.Name, ".JPG"))
			assert.NotEqual(t, "Photo", st.BaseName)
			_, err = uuid.Parse(st.BaseName)
			assert.NoError(t, err, "base name must be a uuid, got %q", st.BaseName)
			assert.Equal(t, fields != nil, st.HasCustomName)
			assert.FileExists(t, st.Path)
		})
	}
}

func TestReceiveNoFile(t *testing.T) {
	cases := map[string]*http.Request{
		"no part": newMultipartRequest(t, nil, map[string]string{NameField: "x"}),
		"wrong field": newMultipartRequest(t,
			[]part{{"file", "a.png", "png"}}, nil),
		"two parts": newMultipartRequest(t,
			[]part{{"image", "a.png", "a"}, {"image", "b.png", "b"}}, nil),
		"not multipart": httptest.NewRequest(http.MethodPost, "/upload-image", strings.NewReader("{}")),
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			rc, dir := newReceiver(t)
			_, err := rc.Receive(r, "image")
			assert.ErrorIs(t, err, ErrNoFileUploaded)
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing must be staged")
		})
	}
}

func TestReceiveInvalidName(t *testing.T) {
	for _, name := range []string{"../evil", "a/b", `a\b`, "..", "."} {
		t.Run(name, func(t *testing.T) {
			rc, _ := newReceiver(t)
			r := newMultipartRequest(t, []part{{"file", "x.txt", "x"}}, map[string]string{NameField: name})
			_, err := rc.Receive(r, "file")
			assert.ErrorIs(t, err, ErrInvalidFileName)
		})
	}
}

func TestReceiveTooLarge(t *testing.T) {
	rc, _ := newReceiver(t)
	r := newMultipartRequest(t, []part{{"file", "big.bin", strings.Repeat("x", 4096)}}, nil)
	w := httptest.NewRecorder()
	r.Body = http.MaxBytesReader(w, r.Body, 512)

	_, err := rc.Receive(r, "file")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExt(t *testing.T) {
	cases := map[string]string{
		"scan.pdf":       ".pdf",
		"IMG_0001.JPEG":  ".JPEG",
		"archive.tar.gz": ".gz",
		"README":         "",
		".bashrc":        "",
		"":               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Ext(in), "Ext(%q)", in)
	}
}

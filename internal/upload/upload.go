// Package upload turns a multipart request into a file in the staging directory.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// NameField is the optional text field carrying the caller's base name.
const NameField = "file_name"

var (
	ErrNoFileUploaded  = errors.New("no file uploaded")
	ErrInvalidFileName = errors.New("invalid file name")
	ErrTooLarge        = errors.New("request body too large")
)

// Staged describes an upload written to the staging directory.
type Staged struct {
	// absolute path of the staged file
	Path string
	// Name is BaseName followed by Ext
	Name     string
	BaseName string
	Ext      string
	// filename as sent by the client
	OriginalName string
	// CustomName is the file_name field, HasCustomName reports whether it was sent at all
	CustomName    string
	HasCustomName bool
	ContentType   string
	Size          int64
}

// Receiver stages uploads into a single directory.
type Receiver struct {
	root      *os.Root
	dir       string
	maxMemory int64
}

// NewReceiver opens stagingDir, which must already exist.
func NewReceiver(stagingDir string, maxMemory int64) (*Receiver, error) {
	dir, err := filepath.Abs(stagingDir)
	if err != nil {
		return nil, fmt.Errorf("resolving staging dir %q: %w", stagingDir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening staging dir as root %q: %w", dir, err)
	}
	return &Receiver{root: root, dir: dir, maxMemory: maxMemory}, nil
}

func (rc *Receiver) Close() error {
	return rc.root.Close()
}

// Receive parses the whole multipart body of r and stages the single file sent under field.
// The caller owns the staged file and must remove it; r.MultipartForm must be cleaned up with RemoveAll.
func (rc *Receiver) Receive(r *http.Request, field string) (Staged, error) {
	if err := r.ParseMultipartForm(rc.maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return Staged{}, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.Bytes(uint64(maxErr.Limit)))
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return Staged{}, ErrNoFileUploaded
		}
		return Staged{}, fmt.Errorf("parsing multipart form: %w", err)
	}
	headers := r.MultipartForm.File[field]
	if len(headers) != 1 {
		return Staged{}, ErrNoFileUploaded
	}
	header := headers[0]

	st := Staged{
		OriginalName: header.Filename,
		Ext:          Ext(header.Filename),
		ContentType:  header.Header.Get("Content-Type"),
	}
	if values, ok := r.MultipartForm.Value[NameField]; ok && len(values) > 0 {
		st.CustomName, st.HasCustomName = values[0], true
	}
	st.BaseName = st.CustomName
	if st.BaseName == "" {
		st.BaseName = uuid.NewString()
	} else if !validBaseName(st.BaseName) {
		return Staged{}, fmt.Errorf("%w: %q", ErrInvalidFileName, st.BaseName)
	}
	st.Name = st.BaseName + st.Ext

	n, err := rc.write(header, st.Name)
	if err != nil {
		return Staged{}, err
	}
	st.Path = filepath.Join(rc.dir, st.Name)
	st.Size = n
	slog.Debug("upload staged", "field", field, "name", st.Name, "original", st.OriginalName, "size", humanize.Bytes(uint64(n)))
	return st, nil
}

func (rc *Receiver) write(header *multipart.FileHeader, name string) (n int64, err error) {
	src, err := header.Open()
	if err != nil {
		return 0, fmt.Errorf("opening uploaded part %q: %w", header.Filename, err)
	}
	defer src.Close()
	dst, err := rc.root.Create(name)
	if err != nil {
		return 0, fmt.Errorf("creating staged file %q: %w", name, err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing staged file %q: %w", name, cerr)
		}
		if err != nil {
			_ = rc.root.Remove(name)
		}
	}()
	if n, err = io.Copy(dst, src); err != nil {
		return 0, fmt.Errorf("writing staged file %q: %w", name, err)
	}
	return n, nil
}

// Ext returns the extension of name including the dot, with its case preserved.
// Names whose only dot is the leading one, like ".bashrc", have no extension.
func Ext(name string) string {
	base := filepath.Base(name)
	if strings.LastIndex(base, ".") <= 0 {
		return ""
	}
	return filepath.Ext(base)
}

func validBaseName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

package server

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/MuhamedUsman/imgdrop/internal/domain"
	"github.com/MuhamedUsman/imgdrop/internal/file"
	"github.com/MuhamedUsman/imgdrop/internal/upload"
	"github.com/dustin/go-humanize"
)

const (
	imageField = "image"
	fileField  = "file"
)

// receive stages the upload sent under field, on failure the response is already written.
func (s *Server) receive(w http.ResponseWriter, r *http.Request, field, failMsg string) (upload.Staged, bool) {
	if limit := s.cfg.Upload.MaxSize; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	st, err := s.receiver.Receive(r, field)
	if err != nil {
		s.receiveErrorResponse(w, r, err, failMsg)
		return upload.Staged{}, false
	}
	return st, true
}

func removeMultipartFiles(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		slog.Error("removing multipart temp files", "err", err)
	}
}

func (s *Server) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	defer removeMultipartFiles(r)
	st, ok := s.receive(w, r, imageField, domain.MsgInternal)
	if !ok {
		return
	}
	defer file.RemoveStaged(st.Path)

	set, err := s.generator.Generate(st.Path, st.OriginalName)
	if err != nil {
		s.serverErrorResponse(w, r, domain.MsgResizeFailed, err)
		return
	}
	slog.Info("image uploaded", "name", set.Name, "original", st.OriginalName, "size", humanize.Bytes(uint64(st.Size)))
	data := domain.ImageUploadResponse{
		Message:   domain.MsgImagesSaved,
		ImageName: set.Name,
	}
	if err = s.writeJSON(w, data, http.StatusOK, nil); err != nil {
		slog.Error("writing response", "path", r.URL.Path, "err", err)
	}
}

func (s *Server) uploadFileHandler(w http.ResponseWriter, r *http.Request) {
	defer removeMultipartFiles(r)
	st, ok := s.receive(w, r, fileField, domain.MsgUploadFailed)
	if !ok {
		return
	}
	defer file.RemoveStaged(st.Path)

	if _, err := file.Persist(st.Path, s.layout.Files, st.Name); err != nil {
		s.serverErrorResponse(w, r, domain.MsgUploadFailed, err)
		return
	}
	slog.Info("file uploaded", "name", st.Name, "original", st.OriginalName, "size", humanize.Bytes(uint64(st.Size)))
	data := domain.FileUploadResponse{
		Message:  domain.MsgFileUploaded,
		FileName: st.Name,
	}
	if st.HasCustomName {
		data.CustomFileName = &st.CustomName
	}
	if err := s.writeJSON(w, data, http.StatusOK, nil); err != nil {
		slog.Error("writing response", "path", r.URL.Path, "err", err)
	}
}

// staticHandler serves the regular files below root by their cleaned relative path.
// Directories and paths leaving root are reported as not found.
func staticHandler(root *os.Root) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			http.NotFound(w, r)
			return
		}
		f, err := root.Open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil || !info.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// optionsHandler answers OPTIONS requests that are not CORS preflights,
// preflights are answered by the cors middleware before reaching the mux.
func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

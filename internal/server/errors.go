package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/MuhamedUsman/imgdrop/internal/domain"
	"github.com/MuhamedUsman/imgdrop/internal/upload"
)

var errNotAllowedByCORS = errors.New("Not allowed by CORS")

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	data := domain.ErrorResponse{Message: message}
	if err != nil {
		data.Error = err.Error()
	}
	if werr := s.writeJSON(w, data, status, nil); werr != nil {
		slog.Error("writing error response", "method", r.Method, "path", r.URL.Path, "err", werr)
	}
}

func (s *Server) serverErrorResponse(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.Error(message, "method", r.Method, "path", r.URL.Path, "err", err)
	s.errorResponse(w, r, http.StatusInternalServerError, message, err)
}

func (s *Server) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusNotFound, domain.MsgNotFound, nil)
}

func (s *Server) corsRejectedResponse(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, http.StatusInternalServerError, domain.MsgInternal, errNotAllowedByCORS)
}

// receiveErrorResponse maps a failed upload.Receive to its response,
// failMsg is used for anything that is not the client's fault.
func (s *Server) receiveErrorResponse(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	switch {
	case errors.Is(err, upload.ErrNoFileUploaded):
		s.errorResponse(w, r, http.StatusBadRequest, domain.MsgNoFile, nil)
	case errors.Is(err, upload.ErrInvalidFileName):
		s.errorResponse(w, r, http.StatusBadRequest, domain.MsgInvalidFileName, err)
	case errors.Is(err, upload.ErrTooLarge):
		s.errorResponse(w, r, http.StatusRequestEntityTooLarge, domain.MsgTooLarge, err)
	default:
		s.serverErrorResponse(w, r, failMsg, err)
	}
}

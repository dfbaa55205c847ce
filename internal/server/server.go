package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MuhamedUsman/imgdrop/internal/bgtask"
	"github.com/MuhamedUsman/imgdrop/internal/config"
	"github.com/MuhamedUsman/imgdrop/internal/derivative"
	"github.com/MuhamedUsman/imgdrop/internal/file"
	"github.com/MuhamedUsman/imgdrop/internal/mdns"
	"github.com/MuhamedUsman/imgdrop/internal/upload"
	"github.com/justinas/alice"
	"github.com/rs/cors"
)

type Server struct {
	// Once Done, the server will exit
	StopCtx context.Context
	// Cancel func for StopCtx
	StopCancel context.CancelFunc
	// Every Goroutine must run through BT Run function
	BT *bgtask.BackgroundTask

	cfg       config.Config
	layout    config.Layout
	receiver  *upload.Receiver
	generator *derivative.Generator
	cors      *cors.Cors
	// static roots, served read only
	images *os.Root
	files  *os.Root
}

// New validates cfg and opens the storage layout it describes.
// Unless storage.create_dirs is set, every directory must already exist.
func New(cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, err := cfg.Layout()
	if err != nil {
		return nil, err
	}
	if cfg.Storage.CreateDirs {
		err = l.Create()
	} else {
		err = l.Check()
	}
	if err != nil {
		return nil, fmt.Errorf("preparing storage layout: %w", err)
	}

	s := &Server{
		BT:        bgtask.New(context.Background()),
		cfg:       cfg,
		layout:    l,
		generator: derivative.NewGenerator(l.Images, cfg.Derivatives.Variants),
		cors:      newCORS(cfg.Server.AllowedOrigins),
	}
	s.StopCtx, s.StopCancel = context.WithCancel(context.Background())
	if s.receiver, err = upload.NewReceiver(l.Staging, cfg.Upload.MaxMemory); err != nil {
		return nil, err
	}
	if s.images, err = os.OpenRoot(l.Images); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("opening images dir as root %q: %w", l.Images, err)
	}
	if s.files, err = os.OpenRoot(l.Files); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("opening files dir as root %q: %w", l.Files, err)
	}
	return s, nil
}

// Close releases the directory handles held by the server.
func (s *Server) Close() error {
	var errs []error
	if s.receiver != nil {
		errs = append(errs, s.receiver.Close())
	}
	for _, root := range []*os.Root{s.images, s.files} {
		if root != nil {
			errs = append(errs, root.Close())
		}
	}
	return errors.Join(errs...)
}

// Handler returns the routes of the service wrapped in its middlewares.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-image", s.uploadImageHandler)
	mux.HandleFunc("POST /upload-file", s.uploadFileHandler)
	mux.Handle("GET /images/", http.StripPrefix("/images", staticHandler(s.images)))
	mux.Handle("GET /files/", http.StripPrefix("/files", staticHandler(s.files)))
	mux.HandleFunc("OPTIONS /", s.optionsHandler)
	mux.HandleFunc("/", s.notFoundResponse)
	return alice.New(s.recoverPanic, s.logRequest, s.filterOrigin, s.cors.Handler).Then(mux)
}

// Start listens on the configured port until StopCtx is canceled or the process
// receives SIGINT/SIGTERM, then shuts the server and its background tasks down.
func (s *Server) Start() error {
	timeout := s.cfg.Server.ShutdownTimeout.Duration
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      s.cfg.Server.WriteTimeout.Duration,
		IdleTimeout:       s.cfg.Server.IdleTimeout.Duration,
		Handler:           s.routes(),
	}
	s.runBackgroundTasks()
	errChan := s.listenAndShutdown(server, timeout)
	slog.Info("starting server", "address", server.Addr, "staging", s.layout.Staging, "images", s.layout.Images, "files", s.layout.Files)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.StopCancel()
		<-errChan
		_ = s.BT.Shutdown(timeout)
		return fmt.Errorf("server listening on address %q: %w", server.Addr, err)
	}
	if err := <-errChan; err != nil {
		return fmt.Errorf("server shutting down: %w", err)
	}
	if err := s.BT.Shutdown(timeout); err != nil {
		return fmt.Errorf("shutting down background tasks: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func (s *Server) listenAndShutdown(server *http.Server, timeout time.Duration) chan error {
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case <-s.StopCtx.Done():
		case sig := <-quit:
			slog.Info("shutting down server", "signal", sig.String())
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			errChan <- fmt.Errorf("shutting down server: %w", err)
		}
	}()
	return errChan
}

func (s *Server) runBackgroundTasks() {
	s.BT.Run(s.sweepStaging)
	if d := s.cfg.Discovery; d.Enabled {
		s.BT.Run(func(shutdownCtx context.Context) {
			slog.Info("publishing multicast DNS entry", "instance", d.Instance)
			if err := mdns.Publish(shutdownCtx, d.Instance, s.cfg.Server.Port); err != nil {
				slog.Error("publishing multicast DNS entry", "err", err)
			}
		})
	}
}

// sweepStaging removes staged files left behind by a crashed process,
// once at startup and then every sweep interval.
func (s *Server) sweepStaging(shutdownCtx context.Context) {
	maxAge := s.cfg.Storage.StagingMaxAge.Duration
	interval := s.cfg.Storage.SweepInterval.Duration
	if maxAge <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := file.SweepStale(shutdownCtx, s.layout.Staging, maxAge)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("sweeping staging dir", "dir", s.layout.Staging, "err", err)
		}
		if n > 0 {
			slog.Warn("removed stale staged files", "count", n, "dir", s.layout.Staging)
		}
		select {
		case <-shutdownCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

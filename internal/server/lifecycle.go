// Package server runs the battle server's long-lived components and shuts
// them down on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a component with a blocking Start and an idempotent Stop.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

// HTTPService serves an http.Server until Stop drains it.
type HTTPService struct {
	srv     *http.Server
	grace   time.Duration
	logger  *zap.Logger
	ln      net.Listener
	lnReady chan struct{}
}

// NewHTTPService wraps srv. Stop waits up to grace for in-flight requests.
//
// Precondition: srv.Addr and srv.Handler must be set.
func NewHTTPService(srv *http.Server, grace time.Duration, logger *zap.Logger) *HTTPService {
	return &HTTPService{srv: srv, grace: grace, logger: logger, lnReady: make(chan struct{})}
}

// Start listens on the server address and serves until Stop.
func (h *HTTPService) Start() error {
	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		close(h.lnReady)
		return fmt.Errorf("listening on %s: %w", h.srv.Addr, err)
	}
	h.ln = ln
	close(h.lnReady)
	h.logger.Info("http listening", zap.String("addr", ln.Addr().String()))
	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr blocks until Start has bound its listener and returns the bound
// address, or "" if binding failed.
func (h *HTTPService) Addr() string {
	<-h.lnReady
	if h.ln == nil {
		return ""
	}
	return h.ln.Addr().String()
}

// Stop shuts the server down gracefully.
func (h *HTTPService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), h.grace)
	defer cancel()
	if err := h.srv.Shutdown(ctx); err != nil {
		h.logger.Warn("http shutdown incomplete", zap.Error(err))
	}
}

// Lifecycle starts services in registration order and stops them in reverse.
type Lifecycle struct {
	logger   *zap.Logger
	mu       sync.Mutex
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc under name.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until ctx is cancelled, a termination
// signal arrives, or a service fails.
//
// Postcondition: every service has been stopped. The first service failure,
// if any, is returned.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	failed := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			if err := ns.service.Start(); err != nil {
				failed <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.Error(context.Cause(ctx)))
	case runErr = <-failed:
		l.logger.Error("service failed, shutting down", zap.Error(runErr))
	}

	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		t0 := time.Now()
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(t0)),
		)
	}
	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(began)))
	return runErr
}

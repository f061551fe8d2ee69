package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// readHeaderTimeout is the timeout for reading request headers.
const readHeaderTimeout = 10 * time.Second

// shutdownTimeout is the timeout for graceful server shutdown.
const shutdownTimeout = 5 * time.Second

// errMissingToken indicates the API was started without an authentication token.
var errMissingToken = errors.New("api token is empty or has not been set")

// API is the token-protected HTTP API server of dockupdate.
type API struct {
	Addr       string // Listen address, e.g. ":8080".
	token      string
	registered bool
	mux        *http.ServeMux
}

// New creates an API listening on addr and requiring token as bearer token.
func New(token, addr string) *API {
	logrus.WithField("addr", addr).Debug("Initialized new API instance")

	return &API{
		Addr:  addr,
		token: token,
		mux:   http.NewServeMux(),
	}
}

// RegisterFunc registers a token-protected handler function for a path.
func (a *API) RegisterFunc(path string, handler http.HandlerFunc) {
	a.mux.Handle(path, a.RequireToken(handler))
	a.registered = true
}

// RegisterHandler registers a token-protected handler for a path.
func (a *API) RegisterHandler(path string, handler http.Handler) {
	a.mux.Handle(path, a.RequireToken(handler))
	a.registered = true
}

// Handler returns the API's router.
func (a *API) Handler() http.Handler {
	return a.mux
}

// Start serves the registered handlers until ctx ends.
//
// Parameters:
//   - ctx: Context ending the server.
//   - blocking: Serve in the foreground and return on shutdown, or serve in the background.
//
// Returns:
//   - error: errMissingToken without a token, or a listen error in blocking mode.
func (a *API) Start(ctx context.Context, blocking bool) error {
	if !a.registered {
		logrus.Info("dockupdate HTTP API skipped.")

		return nil
	}

	if a.token == "" {
		return errMissingToken
	}

	server := &http.Server{
		Addr:              a.Addr,
		Handler:           a.mux,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP API server")

	if blocking {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil {
			logrus.WithError(err).Error("HTTP API server failed")
		}
	}()

	return nil
}

// RequireToken rejects requests without the API token as bearer token.
func (a *API) RequireToken(handler http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || a.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			logrus.WithField("path", r.URL.Path).Debug("Rejected unauthorized API request")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		handler.ServeHTTP(w, r)
	}
}

// HTTPServer is the part of http.Server RunHTTPServer drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// RunHTTPServer serves until ctx ends, then shuts the server down gracefully.
//
// Returns:
//   - error: A listen error, or a shutdown error; nil after a clean shutdown.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}

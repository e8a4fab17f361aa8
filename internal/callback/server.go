// Package callback runs the loopback page the identity provider redirects to
// during sign-in.
//
// The provider puts the session tokens in the URL fragment, which browsers
// never send to a server. The page served at /callback posts its own
// location to /callback/relay; the server hands that location to a Deliver
// func together with a Navigator that records what the page must do next
// (replace its location or navigate away), and the page applies it.
package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/naveenspark/household/internal/logging"
	"github.com/naveenspark/household/internal/session"
)

const (
	// PagePath is the redirect target path.
	PagePath  = "/callback"
	relayPath = "/callback/relay"

	maxRelayBody = 16 << 10
)

// Deliver receives one page load. nav must be used before Deliver returns;
// later calls are not seen by the page.
type Deliver func(ctx context.Context, location string, nav session.Navigator) error

// Server is the loopback callback listener.
type Server struct {
	listener net.Listener
	srv      *http.Server
	deliver  Deliver
	logger   *slog.Logger
	errCh    chan error

	closeOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// Listen binds addr, which must be a loopback address. Port 0 picks an
// ephemeral port.
func Listen(addr string, deliver Deliver, opts ...Option) (*Server, error) {
	if err := checkLoopback(addr); err != nil {
		return nil, fmt.Errorf("callback.Listen: %w", err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("callback.Listen: %w", err)
	}
	s := &Server{
		listener: ln,
		deliver:  deliver,
		logger:   slog.Default(),
		errCh:    make(chan error, 1),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With(logging.FieldComponent, logging.ComponentCallback)
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// ListenAddr returns the address to bind for canonical. With a canonical URL
// the listener takes its port so that a redirect landing on a different
// loopback host name still reaches the server and can be forwarded.
func ListenAddr(canonical string) string {
	if canonical == "" {
		return "127.0.0.1:0"
	}
	u, err := url.Parse(canonical)
	if err != nil || u.Port() == "" {
		return "127.0.0.1:0"
	}
	return net.JoinHostPort("127.0.0.1", u.Port())
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%s is not a loopback address", host)
	}
	return nil
}

// URL is the redirect target to register with the identity provider.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String() + PagePath
}

// Serve starts serving in the background. Fatal errors arrive on Err.
func (s *Server) Serve() {
	go func() {
		if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()
	s.logger.Debug("callback listener ready", logging.FieldAddr, s.listener.Addr().String())
}

// Err reports a failure of the background server.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown stops the server, waiting for in-flight relays until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		err = s.srv.Shutdown(ctx)
	})
	return err
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PagePath, s.handlePage)
	mux.HandleFunc("POST "+relayPath, s.handleRelay)
	return mux
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	fmt.Fprint(w, pageHTML) //nolint:errcheck
}

type relayRequest struct {
	Location string `json:"location"`
}

// relayResponse is the instruction the page applies.
type relayResponse struct {
	Replace  string `json:"replace,omitempty"`
	Navigate string `json:"navigate,omitempty"`
	Error    string `json:"error,omitempty"`
}

// pageNavigator records the Navigator calls made during one delivery.
type pageNavigator struct {
	mu       sync.Mutex
	replace  string
	navigate string
}

func (n *pageNavigator) ReplaceLocation(loc string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replace = loc
}

func (n *pageNavigator) Navigate(loc string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navigate = loc
}

func (n *pageNavigator) instruction() relayResponse {
	n.mu.Lock()
	defer n.mu.Unlock()
	return relayResponse{Replace: n.replace, Navigate: n.navigate}
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	// A JSON content type forces a CORS preflight, which this server never
	// answers, so other origins cannot post here.
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		writeJSON(w, http.StatusUnsupportedMediaType, relayResponse{Error: "expected application/json"})
		return
	}

	var req relayRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRelayBody)).Decode(&req); err != nil || req.Location == "" {
		writeJSON(w, http.StatusBadRequest, relayResponse{Error: "missing location"})
		return
	}
	u, err := url.Parse(req.Location)
	if err != nil || u.Path != PagePath {
		writeJSON(w, http.StatusBadRequest, relayResponse{Error: "location is not the callback page"})
		return
	}

	nav := &pageNavigator{}
	if err := s.deliver(r.Context(), req.Location, nav); err != nil {
		s.logger.Warn("callback delivery failed", logging.FieldError, err)
		resp := nav.instruction()
		resp.Error = err.Error()
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	resp := nav.instruction()
	s.logger.Debug("callback delivered",
		"replace", resp.Replace != "",
		"navigate", resp.Navigate != "",
	)
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

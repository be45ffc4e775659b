// Package authserver implements the local OAuth-style callback
// listener (spec §4.8): an ephemeral HTTP server that receives the
// browser redirect after the user authenticates against the remote
// server, and hands the parsed credentials back through a one-shot
// channel. It is an external collaborator to the sync core — nothing
// downstream of it runs until it completes — grounded on the same
// net/http.Server start/listen-in-goroutine/Close-on-context-done
// pattern the teacher's MCP service (internal/mcpserver/server.go) uses
// for its own ephemeral local listener.
package authserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"guideai/internal/guideerr"
	"guideai/internal/logging"
)

var log = logging.For("authserver")

// PortRange is the first-free-port window spec §4.8 names.
var PortRange = [2]int{8765, 8770}

// Result is what the callback delivers: either a full credential set,
// or an error message the remote side reported.
type Result struct {
	Key        string
	TenantID   string
	TenantName string
	Err        string
}

// Server is a one-shot local HTTP listener: it delivers the result of
// the first /callback request (success or error); later hits still get
// a page but their result is discarded. It keeps serving until the
// caller shuts it down, normally once Await returns.
type Server struct {
	srv     *http.Server
	ln      net.Listener
	port    int
	results chan Result
}

// Listen binds the first free port in PortRange and returns a Server
// ready to Serve. Binding happens here (not in Serve) so the caller
// can learn the chosen port before constructing the URL it opens in
// the user's browser.
func Listen() (*Server, error) {
	var ln net.Listener
	var port int
	var lastErr error
	for p := PortRange[0]; p <= PortRange[1]; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", p))
		if err == nil {
			ln, port = l, p
			break
		}
		lastErr = err
	}
	if ln == nil {
		return nil, guideerr.Wrap(guideerr.KindIO, "no free port in auth callback range", lastErr)
	}

	s := &Server{ln: ln, port: port, results: make(chan Result, 1)}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)
	s.srv = &http.Server{Handler: mux}
	return s, nil
}

// Port returns the bound listener's port, valid after Listen succeeds.
func (s *Server) Port() int {
	return s.port
}

// Serve starts the HTTP server in the background and returns at once.
// The server runs until ctx is cancelled or Close is called; receiving
// a callback does not stop it. Cancelling ctx before a callback arrives
// closes the server with no result ever sent on results.
func (s *Server) Serve(ctx context.Context) {
	go func() {
		if err := s.srv.Serve(s.ln); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("auth callback server error")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.srv.Close()
	}()
}

// Await blocks for the single callback result, a caller-supplied
// timeout, or ctx cancellation, whichever comes first, per spec §4.8's
// "one-shot channel with a caller-supplied timeout".
func (s *Server) Await(ctx context.Context, timeout time.Duration) (Result, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-s.results:
		return r, nil
	case <-timer.C:
		return Result{}, guideerr.New(guideerr.KindAuth, "auth callback timed out")
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close shuts down the listener. Safe to call after Await returns, or
// to abort an in-progress wait early.
func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := Result{
		Key:        q.Get("key"),
		TenantID:   q.Get("tenant_id"),
		TenantName: q.Get("tenant_name"),
		Err:        q.Get("error"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if result.Err != "" {
		fmt.Fprint(w, errorPage(result.Err))
		log.Warn().Str("error", result.Err).Msg("auth callback reported error")
	} else {
		fmt.Fprint(w, successPage)
	}

	select {
	case s.results <- result:
	default:
		// A second hit on /callback after the first was already
		// delivered; nothing more to do.
	}
}

const successPage = `<!DOCTYPE html>
<html><head><title>GuideAI</title></head>
<body>
<p>Signed in. You can close this window.</p>
<script>window.close();</script>
</body></html>`

func errorPage(reason string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>GuideAI</title></head>
<body>
<p>Sign-in failed: %s</p>
<script>window.close();</script>
</body></html>`, reason)
}

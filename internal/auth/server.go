package auth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"time"
)

// callbackResult holds the OAuth2 redirect parameters.
type callbackResult struct {
	Code  string
	State string
	Error string
}

// callbackServer receives exactly one OAuth2 redirect on a loopback port.
type callbackServer struct {
	URL     string
	results chan callbackResult
	srv     *http.Server
}

const callbackPage = `<!DOCTYPE html>
<html>
<head><title>korg</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>`

// startCallbackServer listens on 127.0.0.1:port, or on a random port when
// port is 0 or already taken.
func startCallbackServer(port int) (*callbackServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil && port != 0 {
		ln, err = net.Listen("tcp", "127.0.0.1:0")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	cs := &callbackServer{
		URL:     fmt.Sprintf("http://127.0.0.1:%d/callback", ln.Addr().(*net.TCPAddr).Port),
		results: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", cs.handle)
	cs.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() { _ = cs.srv.Serve(ln) }()
	return cs, nil
}

func (cs *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := callbackResult{Code: q.Get("code"), State: q.Get("state"), Error: q.Get("error")}
	if res.Code == "" && res.Error == "" {
		res.Error = "missing authorization code"
	}

	// Only the first redirect counts.
	select {
	case cs.results <- res:
	default:
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.Error != "" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, callbackPage, "Sign-in failed", html.EscapeString(res.Error))
		return
	}
	fmt.Fprintf(w, callbackPage, "Signed in", "You can close this window and return to the terminal.")
}

// Wait blocks until the redirect arrives or ctx ends.
func (cs *callbackServer) Wait(ctx context.Context) (callbackResult, error) {
	select {
	case res := <-cs.results:
		return res, nil
	case <-ctx.Done():
		return callbackResult{}, ctx.Err()
	}
}

// Close shuts the server down.
func (cs *callbackServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = cs.srv.Shutdown(ctx)
}

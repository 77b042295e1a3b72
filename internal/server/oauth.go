package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/achieve/internal/shared"
)

// Exchanger trades an authorization code for a token. [*oauth2.Config] satisfies it.
type Exchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

var _ Exchanger = (*oauth2.Config)(nil)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the OAuth2 authorization code callback.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	config      Exchanger
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a new OAuth handler with the given config and state token.
// The state token should be random for CSRF protection (see [shared.GenerateState]).
func NewOAuthHandler(config Exchanger, state string) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP validates the state parameter, exchanges the code using the request context,
// and sends the result through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Failed to exchange authorization code", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send delivers r on the result channel. Only the first call has an effect.
func (h *OAuthHandler) Send(r OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- r
		close(h.resultChan)
	})
}

// Result returns the channel that receives the single [OAuthResult].
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Achieve - Google Drive connected</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
<h1>Google Drive connected</h1>
<p>Achievement images can now be uploaded. You can close this window and return to the terminal.</p>
</body>
</html>`

// Loopback runs the browser half of an authorization code flow against a server on localhost.
type Loopback struct {
	Config  Exchanger
	Port    int
	Timeout time.Duration
	// Open is called with the consent URL. A failure is logged and the URL printed so the user can open it manually.
	Open   func(url string) error
	Logger *log.Logger
}

// Run listens on the loopback port, opens the consent page and blocks until the callback completes,
// ctx is done, or the timeout elapses.
func (l *Loopback) Run(ctx context.Context) (*oauth2.Token, error) {
	logger := l.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	handler := NewOAuthHandler(l.Config, state)
	router := NewRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(handler)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(l.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", l.Port, err)
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("callback server shutdown", "error", err)
		}
	}()

	authURL := l.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	if l.Open != nil {
		if err := l.Open(authURL); err != nil {
			logger.Warn("could not open browser", "error", err)
		}
	}
	logger.Info("waiting for authorization", "url", authURL)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case res := <-handler.Result():
		if err := res.Error(); err != nil {
			return nil, err
		}
		return res.Token, nil
	case err := <-serveErr:
		return nil, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: no authorization callback received", shared.ErrTimeout)
	}
}

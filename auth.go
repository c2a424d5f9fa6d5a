package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const callbackPath = "/callback"

type AuthState int

const (
	AwaitingAuthorization AuthState = iota
	ExchangingCode
	Complete
	Failed
)

func (s AuthState) String() string {
	switch s {
	case AwaitingAuthorization:
		return "awaiting_authorization"
	case ExchangingCode:
		return "exchanging_code"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("auth_state(%d)", int(s))
	}
}

// codeExchanger is the part of *oauth2.Config the flow needs.
type codeExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type callbackResult struct {
	code string
	err  error
}

// AuthFlow runs one interactive authorization: it listens on a local
// address, waits for a single redirect carrying a code, and exchanges it.
type AuthFlow struct {
	exchanger codeExchanger
	addr      string
	timeout   time.Duration

	mu       sync.Mutex
	state    AuthState
	listener net.Listener
}

func NewAuthFlow(exchanger codeExchanger, addr string, timeout time.Duration) *AuthFlow {
	return &AuthFlow{exchanger: exchanger, addr: addr, timeout: timeout}
}

func (f *AuthFlow) State() AuthState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *AuthFlow) setState(s AuthState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	log.Debug().Str("state", s.String()).Msg("auth flow")
}

// CallbackURL is only meaningful once Run has started listening.
func (f *AuthFlow) CallbackURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return ""
	}
	return "http://" + f.listener.Addr().String() + callbackPath
}

// Run blocks until a code was exchanged, the provider reported an error,
// the timeout elapsed or ctx was cancelled. present receives the URL the
// user has to open.
func (f *AuthFlow) Run(ctx context.Context, present func(authURL string)) (*oauth2.Token, error) {
	f.setState(AwaitingAuthorization)

	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		f.setState(Failed)
		return nil, fmt.Errorf("listening on %s: %w", f.addr, err)
	}
	f.mu.Lock()
	f.listener = ln
	f.mu.Unlock()

	stateToken := uuid.NewString()
	results := make(chan callbackResult, 1)
	var once sync.Once
	deliver := func(res callbackResult) bool {
		delivered := false
		once.Do(func() {
			results <- res
			delivered = true
		})
		return delivered
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != stateToken {
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			if deliver(callbackResult{err: fmt.Errorf("%w: provider returned %q", ErrAuthState, e)}) {
				fmt.Fprintln(w, "Authorization failed. You can close this window.")
				return
			}
			http.Error(w, "authorization already handled", http.StatusGone)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}
		if !deliver(callbackResult{code: code}) {
			http.Error(w, "authorization already handled", http.StatusGone)
			return
		}
		fmt.Fprintln(w, "Authorization received. You can close this window.")
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	present(f.exchanger.AuthCodeURL(stateToken, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		f.setState(Failed)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrAuthTimeout, f.timeout)
		}
		return nil, ctx.Err()
	}
	if res.err != nil {
		f.setState(Failed)
		return nil, res.err
	}

	f.setState(ExchangingCode)
	token, err := f.exchanger.Exchange(ctx, res.code)
	if err != nil {
		f.setState(Failed)
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	f.setState(Complete)
	return token, nil
}

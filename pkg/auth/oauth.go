package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailScopes are the permissions the assistant needs: reading the inbox,
// sending replies and moving messages to the trash.
var GmailScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
}

const authTimeout = 5 * time.Minute

// Authorizer obtains a brand new token, usually by asking the user
type Authorizer func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)

// OAuth2Config holds OAuth2 configuration
type OAuth2Config struct {
	CredentialsPath string
	TokenPath       string
	Scopes          []string

	// Out receives the sign-in instructions. Defaults to stderr.
	Out io.Writer
	// Authorize replaces the browser flow when set
	Authorize Authorizer
	Logger    *zap.Logger
}

// NewOAuth2Config creates a new OAuth2 configuration
func NewOAuth2Config(credentialsPath string, tokenPath string, scopes ...string) *OAuth2Config {
	return &OAuth2Config{
		CredentialsPath: credentialsPath,
		TokenPath:       tokenPath,
		Scopes:          scopes,
	}
}

func (c *OAuth2Config) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stderr
}

func (c *OAuth2Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// LoadCredentials loads OAuth2 credentials from file
func (c *OAuth2Config) LoadCredentials() (*oauth2.Config, error) {
	data, err := os.ReadFile(c.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("could not read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(data, c.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("could not parse credentials file: %w", err)
	}

	return config, nil
}

// LoadToken loads cached token from file
func (c *OAuth2Config) LoadToken() (*oauth2.Token, error) {
	f, err := os.Open(c.TokenPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("could not decode OAuth token: %w", err)
	}
	return token, nil
}

// SaveToken saves token to file
func (c *OAuth2Config) SaveToken(token *oauth2.Token) error {
	if token == nil {
		return errors.New("cannot save a nil token")
	}
	if err := os.MkdirAll(filepath.Dir(c.TokenPath), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(c.TokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not save OAuth token: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

// GetToken retrieves a token, refreshing it when expired and asking the user
// to sign in again when the refresh token was revoked.
func (c *OAuth2Config) GetToken(ctx context.Context) (*oauth2.Token, error) {
	config, err := c.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return c.tokenFor(ctx, config)
}

func (c *OAuth2Config) tokenFor(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	authorize := c.Authorize
	if authorize == nil {
		authorize = c.authenticate
	}

	token, err := c.LoadToken()
	if err != nil {
		c.logger().Info("no cached token, starting sign-in", zap.Error(err))
		if token, err = authorize(ctx, config); err != nil {
			return nil, err
		}
	}

	if !token.Valid() {
		refreshed, err := config.TokenSource(ctx, token).Token()
		switch {
		case err == nil:
			token = refreshed
		case IsInvalidGrant(err):
			c.logger().Warn("refresh token expired or revoked", zap.Error(err))
			fmt.Fprintln(c.out(), "\nYour Gmail access has expired or been revoked. Please sign in again.")
			if token, err = authorize(ctx, config); err != nil {
				return nil, fmt.Errorf("re-authentication failed: %w", err)
			}
		default:
			return nil, fmt.Errorf("token refresh failed: %w", err)
		}
	}

	if err := c.SaveToken(token); err != nil {
		return nil, err
	}
	return token, nil
}

// IsInvalidGrant reports whether err means the refresh token can no longer
// be used.
func IsInvalidGrant(err error) bool {
	if err == nil {
		return false
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "invalid_grant") || strings.Contains(msg, "Token has been expired or revoked")
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler accepts exactly one redirect carrying the expected state
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	var once sync.Once
	deliver := func(r callbackResult) {
		once.Do(func() {
			select {
			case results <- r:
			default:
			}
		})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "Invalid state", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("invalid state received")})
		case q.Get("error") != "":
			http.Error(w, "Authorization failed: "+q.Get("error"), http.StatusBadRequest)
			deliver(callbackResult{err: fmt.Errorf("authorization failed: %s", q.Get("error"))})
		case q.Get("code") == "":
			http.Error(w, "Authorization code not received", http.StatusBadRequest)
			deliver(callbackResult{err: errors.New("authorization code not received")})
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><body><h2>InboxPilot is connected to Gmail</h2>
<p>You can close this window and return to the terminal.</p></body></html>`))
			deliver(callbackResult{code: q.Get("code")})
		}
	})
}

// authenticate runs the installed-app flow with a loopback redirect
func (c *OAuth2Config) authenticate(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("could not start local callback server: %w", err)
	}

	state := uuid.NewString()
	results := make(chan callbackResult, 1)
	server := &http.Server{Handler: callbackHandler(state, results), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case results <- callbackResult{err: err}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	localConfig := *config
	localConfig.RedirectURL = "http://" + ln.Addr().String()

	authURL := localConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	out := c.out()
	fmt.Fprintf(out, "\nAuthorization required\n")
	fmt.Fprintf(out, "1. Open this link: %s\n", authURL)
	fmt.Fprintf(out, "2. Grant InboxPilot access to your Gmail account\n")
	fmt.Fprintf(out, "3. You will be redirected automatically\n\nWaiting for authorization...\n")

	var res callbackResult
	select {
	case res = <-results:
	case <-time.After(authTimeout):
		return nil, errors.New("authorization timeout exceeded")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := localConfig.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("could not exchange authorization code for token: %w", err)
	}
	fmt.Fprintln(out, "Authorization successful!")
	return token, nil
}

// savingTokenSource writes every new access token back to the token file
type savingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	cfg    *OAuth2Config
	last   string
	logger *zap.Logger
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.cfg.SaveToken(tok); err != nil {
			s.logger.Warn("could not persist refreshed token", zap.Error(err))
		}
	}
	return tok, nil
}

// HTTPClient returns an authorized client whose refreshed tokens are
// persisted to TokenPath.
func (c *OAuth2Config) HTTPClient(ctx context.Context) (*http.Client, error) {
	config, err := c.LoadCredentials()
	if err != nil {
		return nil, err
	}
	token, err := c.tokenFor(ctx, config)
	if err != nil {
		return nil, err
	}
	ts := &savingTokenSource{
		base:   oauth2.ReuseTokenSource(token, config.TokenSource(ctx, token)),
		cfg:    c,
		last:   token.AccessToken,
		logger: c.logger(),
	}
	return oauth2.NewClient(ctx, ts), nil
}

// NewGmailService creates a new Gmail service using OAuth2. GmailScopes are
// requested when scopes is empty.
func NewGmailService(ctx context.Context, credentialsPath, tokenPath string, scopes ...string) (*gmail.Service, error) {
	if len(scopes) == 0 {
		scopes = GmailScopes
	}
	return NewOAuth2Config(credentialsPath, tokenPath, scopes...).GmailService(ctx)
}

// GmailService creates a Gmail service authorized by this configuration
func (c *OAuth2Config) GmailService(ctx context.Context) (*gmail.Service, error) {
	httpClient, err := c.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("could not create Gmail service: %w", err)
	}
	return service, nil
}

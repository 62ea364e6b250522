package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/teslashibe/go-aura/internal/httpc"
)

// tokenRequestTimeout bounds one access token request.
const tokenRequestTimeout = 10 * time.Second

// TokenSource fetches short-lived access tokens with the client-credentials
// grant, so the raw API key never travels in the session URL.
type TokenSource struct {
	cfg    *clientcredentials.Config
	client *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

// NewTokenSource returns a TokenSource for the given key pair. Tokens are
// cached until shortly before they expire.
func NewTokenSource(apiKey, secretKey, tokenURL string) *TokenSource {
	return &TokenSource{
		cfg: &clientcredentials.Config{
			ClientID:     apiKey,
			ClientSecret: secretKey,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: httpc.NewClient(tokenRequestTimeout),
	}
}

// Token returns a valid access token, fetching a new one when the cached
// token is missing or about to expire. The fetch is abandoned when ctx is
// done.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok.Valid() {
		return s.tok.AccessToken, nil
	}

	tok, err := s.cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, s.client))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			apiErr := NewAPIError(re.Response.StatusCode, re.ErrorCode, "token request rejected")
			apiErr.Details = re.ErrorDescription
			return "", apiErr
		}
		return "", NewConnectionError("fetch access token", err, true)
	}
	if tok.AccessToken == "" {
		return "", NewConnectionError("fetch access token", fmt.Errorf("empty token"), false)
	}
	s.tok = tok
	return tok.AccessToken, nil
}

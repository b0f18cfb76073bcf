package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// expiryBuffer is subtracted from the carrier-reported TTL so a token is
// never presented close to its actual expiry.
const expiryBuffer = 5 * time.Minute

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenSource caches a single bearer token obtained via the OAuth2
// client-credentials grant. The mutex guarantees at most one in-flight
// exchange; concurrent callers block and reuse the fresh token.
type tokenSource struct {
	httpClient   *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	log          *logrus.Entry

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSource(httpClient *http.Client, baseURL, clientID, clientSecret string, logger *logrus.Logger) *tokenSource {
	return &tokenSource{
		httpClient:   httpClient,
		tokenURL:     strings.TrimSuffix(baseURL, "/") + "/oauth/token",
		clientID:     clientID,
		clientSecret: clientSecret,
		log:          logger.WithField("component", "carrier_token"),
	}
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt) {
		return s.token, nil
	}

	start := time.Now()
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.WithError(err).Error("Token request failed")
		return "", &AuthError{Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.log.WithField("status_code", resp.StatusCode).Error("Token exchange rejected")
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		s.log.WithError(err).Error("Failed to decode token response")
		return "", &AuthError{Body: fmt.Sprintf("invalid token response: %v", err)}
	}
	if tokenResp.AccessToken == "" {
		return "", &AuthError{Body: "token response missing access_token"}
	}

	expiresIn := tokenResp.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}

	s.token = tokenResp.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - expiryBuffer)

	s.log.WithFields(logrus.Fields{
		"duration":   time.Since(start),
		"expires_in": expiresIn,
	}).Debug("Acquired carrier access token")
	return s.token, nil
}

// Invalidate drops the cached token so the next call performs a fresh
// exchange.
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

package copilot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/luispater/CopilotBridge/internal/config"
	"github.com/luispater/CopilotBridge/internal/constant"
	"github.com/luispater/CopilotBridge/internal/util"
)

// tokenExchangeTimeout bounds the issuance call so a stalled exchange fails
// instead of hanging the request that triggered it.
const tokenExchangeTimeout = 10 * time.Second

// CopilotAuth performs the exchange of a long-lived OAuth token for a
// short-lived Copilot service token at the issuance endpoint.
type CopilotAuth struct {
	httpClient *http.Client
	tokenURL   string
}

// NewCopilotAuth creates a new CopilotAuth using the configured issuance
// endpoint and outbound proxy settings.
func NewCopilotAuth(cfg *config.Config) *CopilotAuth {
	return &CopilotAuth{
		httpClient: util.SetProxy(cfg, &http.Client{Timeout: tokenExchangeTimeout}),
		tokenURL:   cfg.TokenEndpointURL(),
	}
}

// ExchangeToken calls the issuance endpoint with the long-lived OAuth token
// and parses the response into a CopilotToken. Any network, status, or
// parse failure is reported as an UpstreamError.
func (ca *CopilotAuth) ExchangeToken(ctx context.Context, oauthToken string) (*CopilotToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ca.tokenURL, nil)
	if err != nil {
		return nil, &UpstreamError{Message: "failed to create token request", Err: err}
	}

	req.Header.Set("Authorization", "token "+oauthToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Editor-Version", constant.EditorVersion)
	req.Header.Set("Editor-Plugin-Version", constant.EditorPluginVersion)
	req.Header.Set("User-Agent", constant.UserAgent)

	resp, err := ca.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: "token exchange request failed", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Message: "failed to read token response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Message: "token exchange failed", StatusCode: resp.StatusCode}
	}

	var token CopilotToken
	if err = json.Unmarshal(body, &token); err != nil {
		return nil, &UpstreamError{Message: "failed to parse token response", Err: err}
	}
	if !token.wellFormed() {
		return nil, &UpstreamError{Message: "token response is missing required fields"}
	}

	return &token, nil
}

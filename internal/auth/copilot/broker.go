package copilot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/luispater/CopilotBridge/internal/config"
	"github.com/luispater/CopilotBridge/internal/constant"
	log "github.com/sirupsen/logrus"
)

// CredentialSource supplies the long-lived OAuth token on demand.
type CredentialSource interface {
	OAuthToken() (string, error)
}

// TokenBroker owns the in-memory service token slot. It decides when the
// token is stale, exchanges the long-lived credential for a fresh one, and
// keeps the on-disk cache in sync. All access goes through Headers.
type TokenBroker struct {
	mu     sync.Mutex
	auth   *CopilotAuth
	source CredentialSource
	cache  *TokenCache

	oauthToken string
	token      *CopilotToken

	machineID string
	sessionID string
}

// NewTokenBroker creates a broker seeded from the on-disk token cache.
// A cached token's expiry is re-validated lazily on first use, not here.
func NewTokenBroker(cfg *config.Config) *TokenBroker {
	b := &TokenBroker{
		auth:      NewCopilotAuth(cfg),
		source:    NewOAuthSource(cfg.CopilotConfigDir),
		cache:     NewTokenCache(cfg.TokenCachePath()),
		machineID: uuid.NewString(),
	}
	if b.token = b.cache.Load(); b.token != nil {
		log.Debug("token broker seeded from cached service token")
	}
	return b
}

// Headers returns the outbound request headers built from a valid service
// token, refreshing the token first when the slot is empty or expired.
//
// The broker mutex is held for the whole call, including any refresh, so at
// most one issuance call is in flight process-wide; concurrent callers wait
// for its outcome instead of issuing their own exchanges. A failed refresh
// leaves the previous state untouched and is not sticky.
func (b *TokenBroker) Headers(ctx context.Context) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.token == nil || b.token.Expired(time.Now()) {
		if err := b.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}

	return b.buildHeadersLocked(), nil
}

// refreshLocked exchanges the long-lived credential for a new service
// token. Callers must hold b.mu.
func (b *TokenBroker) refreshLocked(ctx context.Context) error {
	if b.oauthToken == "" {
		oauthToken, err := b.source.OAuthToken()
		if err != nil {
			return err
		}
		b.oauthToken = oauthToken
	}

	token, err := b.auth.ExchangeToken(ctx, b.oauthToken)
	if err != nil {
		return err
	}

	if errStore := b.cache.Store(token); errStore != nil {
		log.Warnf("failed to persist refreshed service token: %v", errStore)
	}

	b.token = token
	b.sessionID = fmt.Sprintf("%s%d", uuid.NewString(), time.Now().UnixMilli())
	log.Debugf("service token refreshed, expires at %d", token.ExpiresAt)
	return nil
}

// buildHeadersLocked assembles the full outbound header set from the
// current token. Callers must hold b.mu.
func (b *TokenBroker) buildHeadersLocked() map[string]string {
	return map[string]string{
		"Authorization":          "Bearer " + b.token.Token,
		"Content-Type":           "application/json",
		"X-Request-Id":           uuid.NewString(),
		"Vscode-Machineid":       b.machineID,
		"Vscode-Sessionid":       b.sessionID,
		"Copilot-Integration-Id": constant.CopilotIntegrationID,
		"Openai-Organization":    constant.OpenAIOrganization,
		"Openai-Intent":          constant.OpenAIIntent,
		"Editor-Version":         constant.EditorVersion,
		"Editor-Plugin-Version":  constant.EditorPluginVersion,
		"User-Agent":             constant.UserAgent,
	}
}

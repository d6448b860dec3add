// Package constant defines the fixed endpoints and client-identification
// values used throughout CopilotBridge. These mirror what the official
// Copilot editor plugins send, ensuring the upstream API accepts requests
// from this proxy.
package constant

const (
	// TokenEndpoint is the GitHub endpoint that exchanges a long-lived
	// OAuth token for a short-lived Copilot service token.
	TokenEndpoint = "https://api.github.com/copilot_internal/v2/token"

	// UpstreamEndpoint is the Copilot completion API base URL that all
	// proxied requests are forwarded to.
	UpstreamEndpoint = "https://api.githubcopilot.com"

	// DefaultTokenCacheFile is the well-known location of the cached
	// service token blob.
	DefaultTokenCacheFile = "/tmp/copilot_token.json"

	// EditorVersion identifies the editor build to GitHub.
	EditorVersion = "vscode/1.83.0"

	// EditorPluginVersion identifies the plugin build to GitHub.
	EditorPluginVersion = "copilotcli/1.0.0"

	// UserAgent is sent on every outbound request.
	UserAgent = "copilotcli/1.0.0"

	// CopilotIntegrationID identifies the integration surface.
	CopilotIntegrationID = "vscode-chat"

	// OpenAIOrganization is the fixed organization header value expected
	// by the completion API.
	OpenAIOrganization = "github-copilot"

	// OpenAIIntent is the fixed intent header value expected by the
	// completion API.
	OpenAIIntent = "conversation-panel"
)

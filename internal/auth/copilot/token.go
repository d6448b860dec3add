// Package copilot manages the Copilot credential lifecycle: locating the
// long-lived GitHub OAuth token in the local editor configuration,
// exchanging it for a short-lived service token at the GitHub issuance
// endpoint, caching that token on disk, and building the outbound request
// headers the completion API expects.
package copilot

import "time"

// CopilotToken represents a short-lived Copilot service token and its
// associated metadata as returned by the issuance endpoint. A token is
// never mutated after issuance; refreshes replace the whole value.
type CopilotToken struct {
	// Token is the bearer secret presented to the completion API.
	Token string `json:"token"`

	// ExpiresAt is the absolute expiry timestamp in epoch seconds.
	ExpiresAt int64 `json:"expires_at"`

	// RefreshIn is the refresh interval recommended by the issuer, in seconds.
	RefreshIn int `json:"refresh_in"`

	// Endpoints maps named sub-endpoint identifiers to their URLs.
	Endpoints map[string]string `json:"endpoints"`

	// TrackingID identifies the issued grant for telemetry correlation.
	TrackingID string `json:"tracking_id"`

	// SKU identifies the plan the token was issued under.
	SKU string `json:"sku"`

	AnnotationsEnabled     bool `json:"annotations_enabled"`
	ChatEnabled            bool `json:"chat_enabled"`
	ChatJetbrainsEnabled   bool `json:"chat_jetbrains_enabled"`
	CodeQuoteEnabled       bool `json:"code_quote_enabled"`
	CodeReviewEnabled      bool `json:"code_review_enabled"`
	CodeSearch             bool `json:"codesearch"`
	CopilotIgnoreEnabled   bool `json:"copilotignore_enabled"`
	Individual             bool `json:"individual"`
	Prompt8K               bool `json:"prompt_8k"`
	SnippyLoadTestEnabled  bool `json:"snippy_load_test_enabled"`
	Xcode                  bool `json:"xcode"`
	XcodeChat              bool `json:"xcode_chat"`

	PublicSuggestions string `json:"public_suggestions"`
	Telemetry         string `json:"telemetry"`
}

// Expired reports whether the token may no longer be presented upstream.
// A token is usable only while the current time is strictly before its
// expiry timestamp.
func (t *CopilotToken) Expired(now time.Time) bool {
	return now.Unix() >= t.ExpiresAt
}

// wellFormed reports whether the token carries the minimum shape required
// for use: a non-empty secret and a positive expiry.
func (t *CopilotToken) wellFormed() bool {
	return t.Token != "" && t.ExpiresAt > 0
}

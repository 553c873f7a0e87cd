// Package webhook verifies inbound webhook deliveries signed with the
// svix scheme used by Clerk and other identity providers.
//
// A delivery carries three headers (webhook-id, webhook-timestamp,
// webhook-signature) and a raw JSON body. The signature is an HMAC-SHA256
// over "id.timestamp.body" keyed with the endpoint secret. Verification is
// constant-time and bounded by a freshness window, and the payload is only
// decoded after the signature has been accepted so unauthenticated callers
// never learn anything about the parser.
//
// Usage:
//
//	v, err := webhook.NewVerifier(cfg.SigningSecret, cfg.Tolerance)
//	if err != nil { ... }
//
//	hdrs, err := webhook.ExtractHeaders(r.Header)
//	if err != nil { ... }
//
//	evt, err := v.Verify(body, hdrs)
package webhook

package webhook

import "errors"

var (
	// ErrInvalidSecret is returned when the endpoint secret is empty or not
	// valid base64 after stripping the optional "whsec_" prefix.
	ErrInvalidSecret = errors.New("webhook: invalid signing secret")

	// ErrMissingHeaders is returned when one of the required signature
	// headers is absent or unparsable.
	ErrMissingHeaders = errors.New("webhook: missing or malformed signature headers")

	// ErrInvalidSignature is returned when no signature in the header matches
	// the expected HMAC for the delivery.
	ErrInvalidSignature = errors.New("webhook: signature mismatch")

	// ErrStaleTimestamp is returned when the delivery timestamp falls outside
	// the configured freshness window in either direction.
	ErrStaleTimestamp = errors.New("webhook: timestamp outside freshness window")

	// ErrMalformedPayload is returned when a correctly signed body cannot be
	// decoded into the event envelope.
	ErrMalformedPayload = errors.New("webhook: malformed event payload")
)

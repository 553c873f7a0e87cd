package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const secretPrefix = "whsec_"

// Headers carries the raw signature headers of a single delivery.
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// Event is the decoded webhook envelope. Data stays raw so callers can decode
// it into an event-type specific structure.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// Verifier validates svix-signed webhook deliveries using a shared secret.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier from the provider's endpoint secret.
// The secret may carry the "whsec_" prefix; the remainder must be base64.
// Deliveries whose timestamp deviates from the local clock by more than
// tolerance (in either direction) are rejected.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	raw := strings.TrimPrefix(secret, secretPrefix)
	if raw == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrInvalidSecret)
	}

	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not valid base64", ErrInvalidSecret)
	}

	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}

	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify authenticates a delivery and decodes its envelope.
// The signature check runs before and independently of payload parsing.
func (v *Verifier) Verify(body []byte, h Headers) (*Event, error) {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return nil, ErrMissingHeaders
	}

	unix, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp is not a unix epoch", ErrMissingHeaders)
	}

	ts := time.Unix(unix, 0)
	if age := v.now().Sub(ts); age > v.tolerance || age < -v.tolerance {
		return nil, fmt.Errorf("%w: delivery is %s old", ErrStaleTimestamp, age.Truncate(time.Second))
	}

	expected := v.Sign(h.ID, unix, body)
	if !signatureListContains(h.Signature, expected) {
		return nil, ErrInvalidSignature
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err)
	}
	evt.ID = h.ID
	evt.Timestamp = ts

	return &evt, nil
}

// Sign computes the base64 HMAC-SHA256 signature for a delivery, the same
// value a provider would place in the webhook-signature header. Exposed so
// outbound deliveries and tests can produce valid signatures.
func (v *Verifier) Sign(id string, unixTimestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%d.", id, unixTimestamp)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signatureListContains checks the space-separated "v1,<sig>" entries of the
// signature header against the expected value in constant time per entry.
// Multiple entries appear after a secret rotation.
func signatureListContains(header, expected string) bool {
	valid := false
	for _, entry := range strings.Split(header, " ") {
		version, sig, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		// No early return: every candidate is compared so timing does not
		// reveal which entry failed.
		if hmac.Equal([]byte(sig), []byte(expected)) {
			valid = true
		}
	}
	return valid
}

// ExtractHeaders pulls the signature headers from an HTTP request.
// Accepts the generic webhook-* names and the svix-* names Clerk sends.
func ExtractHeaders(h http.Header) (Headers, error) {
	pick := func(names ...string) string {
		for _, name := range names {
			if v := h.Get(name); v != "" {
				return v
			}
		}
		return ""
	}

	out := Headers{
		ID:        pick("webhook-id", "svix-id"),
		Timestamp: pick("webhook-timestamp", "svix-timestamp"),
		Signature: pick("webhook-signature", "svix-signature"),
	}
	if out.ID == "" || out.Timestamp == "" || out.Signature == "" {
		return Headers{}, ErrMissingHeaders
	}
	return out, nil
}

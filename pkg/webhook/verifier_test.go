package webhook_test

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/domainboard/pkg/webhook"
)

const testSecret = "whsec_dGVzdC1zaWduaW5nLXNlY3JldA==" // "test-signing-secret"

func signedHeaders(t *testing.T, v *webhook.Verifier, id string, ts time.Time, body []byte) webhook.Headers {
	t.Helper()
	return webhook.Headers{
		ID:        id,
		Timestamp: fmt.Sprintf("%d", ts.Unix()),
		Signature: "v1," + v.Sign(id, ts.Unix(), body),
	}
}

func TestNewVerifier(t *testing.T) {
	t.Parallel()

	t.Run("accepts prefixed base64 secret", func(t *testing.T) {
		t.Parallel()
		v, err := webhook.NewVerifier(testSecret, time.Minute)
		require.NoError(t, err)
		require.NotNil(t, v)
	})

	t.Run("accepts bare base64 secret", func(t *testing.T) {
		t.Parallel()
		_, err := webhook.NewVerifier(base64.StdEncoding.EncodeToString([]byte("k")), time.Minute)
		require.NoError(t, err)
	})

	t.Run("rejects empty secret", func(t *testing.T) {
		t.Parallel()
		_, err := webhook.NewVerifier("", time.Minute)
		require.ErrorIs(t, err, webhook.ErrInvalidSecret)
	})

	t.Run("rejects non-base64 secret", func(t *testing.T) {
		t.Parallel()
		_, err := webhook.NewVerifier("whsec_!!!not-base64!!!", time.Minute)
		require.ErrorIs(t, err, webhook.ErrInvalidSecret)
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	v, err := webhook.NewVerifier(testSecret, 5*time.Minute)
	require.NoError(t, err)

	body := []byte(`{"type":"identity.created","data":{"id":"idn_123","first_name":"Ada"}}`)

	t.Run("valid delivery decodes envelope", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		evt, err := v.Verify(body, signedHeaders(t, v, "msg_1", now, body))
		require.NoError(t, err)
		assert.Equal(t, "msg_1", evt.ID)
		assert.Equal(t, "identity.created", evt.Type)
		assert.JSONEq(t, `{"id":"idn_123","first_name":"Ada"}`, string(evt.Data))
		assert.Equal(t, now.Unix(), evt.Timestamp.Unix())
	})

	t.Run("accepts rotated signature list", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		h := signedHeaders(t, v, "msg_2", now, body)
		h.Signature = "v1,bm90LXRoaXMtb25l " + h.Signature
		_, err := v.Verify(body, h)
		require.NoError(t, err)
	})

	t.Run("rejects signature from another secret", func(t *testing.T) {
		t.Parallel()

		other, err := webhook.NewVerifier("whsec_b3RoZXItc2VjcmV0", time.Minute)
		require.NoError(t, err)

		h := signedHeaders(t, other, "msg_3", time.Now(), body)
		_, err = v.Verify(body, h)
		require.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("rejects tampered body", func(t *testing.T) {
		t.Parallel()

		h := signedHeaders(t, v, "msg_4", time.Now(), body)
		_, err := v.Verify([]byte(`{"type":"identity.created","data":{"id":"idn_evil"}}`), h)
		require.ErrorIs(t, err, webhook.ErrInvalidSignature)
	})

	t.Run("rejects stale timestamp", func(t *testing.T) {
		t.Parallel()

		h := signedHeaders(t, v, "msg_5", time.Now().Add(-10*time.Minute), body)
		_, err := v.Verify(body, h)
		require.ErrorIs(t, err, webhook.ErrStaleTimestamp)
	})

	t.Run("rejects far-future timestamp", func(t *testing.T) {
		t.Parallel()

		h := signedHeaders(t, v, "msg_6", time.Now().Add(10*time.Minute), body)
		_, err := v.Verify(body, h)
		require.ErrorIs(t, err, webhook.ErrStaleTimestamp)
	})

	t.Run("rejects missing headers", func(t *testing.T) {
		t.Parallel()

		_, err := v.Verify(body, webhook.Headers{ID: "msg_7"})
		require.ErrorIs(t, err, webhook.ErrMissingHeaders)
	})

	t.Run("rejects non-numeric timestamp", func(t *testing.T) {
		t.Parallel()

		h := signedHeaders(t, v, "msg_8", time.Now(), body)
		h.Timestamp = "yesterday"
		_, err := v.Verify(body, h)
		require.ErrorIs(t, err, webhook.ErrMissingHeaders)
	})

	t.Run("signed but malformed body fails after signature check", func(t *testing.T) {
		t.Parallel()

		junk := []byte(`{"type":`)
		h := signedHeaders(t, v, "msg_9", time.Now(), junk)
		_, err := v.Verify(junk, h)
		require.ErrorIs(t, err, webhook.ErrMalformedPayload)
	})
}

func TestExtractHeaders(t *testing.T) {
	t.Parallel()

	t.Run("webhook-prefixed names", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set("Webhook-Id", "msg_1")
		h.Set("Webhook-Timestamp", "1700000000")
		h.Set("Webhook-Signature", "v1,abc")

		got, err := webhook.ExtractHeaders(h)
		require.NoError(t, err)
		assert.Equal(t, "msg_1", got.ID)
		assert.Equal(t, "1700000000", got.Timestamp)
		assert.Equal(t, "v1,abc", got.Signature)
	})

	t.Run("svix-prefixed names", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set("Svix-Id", "msg_2")
		h.Set("Svix-Timestamp", "1700000000")
		h.Set("Svix-Signature", "v1,def")

		got, err := webhook.ExtractHeaders(h)
		require.NoError(t, err)
		assert.Equal(t, "msg_2", got.ID)
	})

	t.Run("missing any header fails", func(t *testing.T) {
		t.Parallel()

		h := http.Header{}
		h.Set("Webhook-Id", "msg_3")
		_, err := webhook.ExtractHeaders(h)
		require.ErrorIs(t, err, webhook.ErrMissingHeaders)
	})
}

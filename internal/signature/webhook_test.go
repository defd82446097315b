// internal/signature/webhook_test.go
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"talent-platform/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"event_type":"viewed","document_id":"doc-1"}`)
	verifier := NewWebhookVerifier("topsecret")

	tests := []struct {
		name      string
		signature string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			signature: sign("topsecret", payload),
		},
		{
			name:      "valid with sha256 prefix",
			signature: "sha256=" + sign("topsecret", payload),
		},
		{
			name:      "wrong secret",
			signature: sign("other", payload),
			wantErr:   true,
		},
		{
			name:      "missing signature",
			signature: "",
			wantErr:   true,
		},
		{
			name:      "not hex",
			signature: "zz-not-hex",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(payload, tt.signature)
			if tt.wantErr {
				assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	verifier := NewWebhookVerifier("topsecret")
	original := []byte(`{"event_type":"completed","document_id":"doc-1"}`)
	tampered := []byte(`{"event_type":"completed","document_id":"doc-2"}`)

	err := verifier.Verify(tampered, sign("topsecret", original))

	assert.True(t, errors.IsCode(err, errors.ErrCodeUnauthorized))
}

func TestParse(t *testing.T) {
	verifier := NewWebhookVerifier("topsecret")

	payload := []byte(`{
		"event_type": "completed",
		"document_id": "doc-1",
		"signer_email": "signer@example.com",
		"completed_document_ref": "ref.pdf"
	}`)

	event, err := verifier.Parse(payload)

	require.NoError(t, err)
	assert.Equal(t, "completed", event.EventType)
	assert.Equal(t, "doc-1", event.DocumentID)
	assert.Equal(t, "ref.pdf", event.CompletedDocRef)
	assert.Equal(t, payload, event.Raw, "raw payload is kept for auditing")
}

func TestParse_InvalidPayloads(t *testing.T) {
	verifier := NewWebhookVerifier("topsecret")

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `not json at all`},
		{"missing event type", `{"document_id": "doc-1"}`},
		{"missing document id", `{"event_type": "viewed"}`},
		{"empty document id", `{"event_type": "viewed", "document_id": ""}`},
		{"wrong type", `{"event_type": 7, "document_id": "doc-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Parse([]byte(tt.payload))
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestParse_UnknownEventTypeIsStillValid(t *testing.T) {
	verifier := NewWebhookVerifier("topsecret")

	event, err := verifier.Parse([]byte(`{"event_type": "signer_replaced", "document_id": "doc-1"}`))

	require.NoError(t, err)
	assert.Equal(t, "signer_replaced", event.EventType)
}

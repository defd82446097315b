// internal/signature/webhook.go
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"talent-platform/internal/common/errors"
	"talent-platform/internal/letters"

	"github.com/xeipuuv/gojsonschema"
)

// eventSchema constrains provider webhook payloads before they reach the
// workflow. event_type is deliberately unconstrained: unknown types are
// valid payloads that the workflow acknowledges without a state change.
const eventSchema = `{
	"type": "object",
	"required": ["event_type", "document_id"],
	"properties": {
		"event_type": {"type": "string", "minLength": 1},
		"document_id": {"type": "string", "minLength": 1},
		"signer_email": {"type": "string"},
		"signer_name": {"type": "string"},
		"completed_document_ref": {"type": "string"}
	}
}`

var eventSchemaLoader = gojsonschema.NewStringLoader(eventSchema)

// WebhookVerifier authenticates and parses inbound provider events.
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify checks the provider's HMAC-SHA256 signature over the raw payload.
// The signature header carries a hex digest, optionally prefixed with
// "sha256=".
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) error {
	if signatureHeader == "" {
		return errors.NewUnauthorizedError("missing webhook signature")
	}

	given, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, "sha256="))
	if err != nil {
		return errors.NewUnauthorizedError("malformed webhook signature")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), given) {
		return errors.NewUnauthorizedError("webhook signature mismatch")
	}

	return nil
}

// Parse validates the payload shape and decodes it into a workflow event.
// The raw payload is retained on the event for auditing.
func (v *WebhookVerifier) Parse(payload []byte) (letters.ProviderEvent, error) {
	result, err := gojsonschema.Validate(eventSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return letters.ProviderEvent{}, errors.NewInvalidInputError("unparseable webhook payload")
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return letters.ProviderEvent{}, errors.NewInvalidInputError("invalid webhook payload: " + strings.Join(details, "; "))
	}

	var event letters.ProviderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return letters.ProviderEvent{}, errors.NewInvalidInputError("unparseable webhook payload")
	}
	event.Raw = payload

	return event, nil
}

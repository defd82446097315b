// internal/letters/states.go
// Package letters implements the interest letter workflow: employer
// submission, admin review, the e-signature sub-flow and the final forward
// that reveals candidate contact details.
package letters

import (
	"talent-platform/internal/common/errors"
	"talent-platform/internal/models"
)

// Event is a workflow event applied to a letter's primary status.
type Event string

const (
	EventSubmit  Event = "submit"
	EventApprove Event = "approve"
	EventReject  Event = "reject"
)

// transitions is the primary status machine: old state and event determine
// the new state. Approval lands directly on "sent": approved letters are
// delivered to the candidate in the same step, with no separate dispatch.
var transitions = map[models.LetterStatus]map[Event]models.LetterStatus{
	models.LetterDraft: {
		EventSubmit: models.LetterPendingReview,
	},
	models.LetterPendingReview: {
		EventApprove: models.LetterSent,
		EventReject:  models.LetterRejected,
	},
}

// Transition applies ev to current and returns the new status, or an
// InvalidState error when the event is not valid for the current status.
func Transition(current models.LetterStatus, ev Event) (models.LetterStatus, error) {
	if next, ok := transitions[current][ev]; ok {
		return next, nil
	}
	return current, errors.NewInvalidStateError(string(current), string(ev))
}

// providerEventStatus is the fixed mapping from signature-provider webhook
// event types to signature statuses. Unknown event types are absent from the
// map and must be acknowledged without a state change.
var providerEventStatus = map[string]models.SignatureStatus{
	"sent":      models.SignatureSentToSigner,
	"viewed":    models.SignatureViewed,
	"completed": models.SignatureSigned,
	"declined":  models.SignatureDeclined,
	"expired":   models.SignatureExpired,
	"cancelled": models.SignatureNone,
}

// MapProviderEvent resolves a provider event type to the signature status it
// sets. known is false for unrecognized event types.
func MapProviderEvent(eventType string) (status models.SignatureStatus, known bool) {
	status, known = providerEventStatus[eventType]
	return status, known
}

// IntentKind names a side effect queued by a transition.
type IntentKind string

const (
	IntentNotifyAdmins   IntentKind = "notify_admins"
	IntentNotifyTalent   IntentKind = "notify_talent"
	IntentNotifyEmployer IntentKind = "notify_employer"
	IntentLogActivity    IntentKind = "log_activity"
)

// Intent is a side effect to execute after the primary mutation commits.
// Each intent runs independently: a failure is logged and never reverts the
// transition that produced it.
type Intent struct {
	Kind        IntentKind
	RecipientID string
	Type        string
	Subject     string
	Body        string
	Priority    string
	Action      string
	Detail      map[string]interface{}
}

// internal/server/server.go
// Package server is the gin HTTP surface over the core services. Handlers
// stay thin: decode, call the service, map the error taxonomy to a status
// code. Identity travels in the request context, never as handler state.
package server

import (
	"context"

	"talent-platform/internal/billing"
	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/documents"
	"talent-platform/internal/letters"
	"talent-platform/internal/models"
	"talent-platform/internal/scoresync"
	"talent-platform/internal/scoring"
	"talent-platform/internal/search"
)

// Service interfaces, sliced per handler group for testability.

type TokenIntrospector interface {
	Introspect(ctx context.Context, token string) (*auth.Identity, error)
}

type DocumentService interface {
	Upload(ctx context.Context, input documents.UploadInput) (*models.Document, error)
	Verify(ctx context.Context, documentID string) (*scoring.Summary, error)
	Override(ctx context.Context, documentID string, input documents.OverrideInput) (*scoring.Summary, error)
	Reject(ctx context.Context, documentID string) (*scoring.Summary, error)
	Delete(ctx context.Context, documentID string) (*scoring.Summary, error)
	Get(ctx context.Context, documentID string) (*models.Document, error)
	ListByTalent(ctx context.Context, talentID string) ([]*models.Document, error)
}

type SummaryService interface {
	CurrentSummary(ctx context.Context, talentID string) (*scoring.Summary, error)
	Recompute(ctx context.Context, talentID string) (*scoring.Summary, error)
}

type LetterService interface {
	Create(ctx context.Context, input letters.CreateInput) (*models.InterestLetter, error)
	Submit(ctx context.Context, letterID string) error
	Approve(ctx context.Context, letterID string) error
	Reject(ctx context.Context, letterID string) error
	RequestSignature(ctx context.Context, letterID, signerEmail, signerName string) error
	HandleSignatureEvent(ctx context.Context, event letters.ProviderEvent) error
	BeginAdminReview(ctx context.Context, letterID string) error
	Forward(ctx context.Context, letterID string) error
	Load(ctx context.Context, letterID string) (*models.InterestLetter, error)
	ListPendingReview(ctx context.Context) ([]*models.InterestLetter, error)
	ListByEmployer(ctx context.Context, employerID string) ([]*models.InterestLetter, error)
	ListForTalent(ctx context.Context, talentID string) ([]*models.InterestLetter, error)
}

type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) error
	Parse(payload []byte) (letters.ProviderEvent, error)
}

type PromoService interface {
	CreatePromoCode(ctx context.Context, input billing.CreatePromoCodeInput) (*models.PromoCode, error)
	ValidatePromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	RedeemPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
}

type PaymentsService interface {
	CreateCustomer(ctx context.Context, customer *billing.Customer) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, couponID string) (*billing.CheckoutSession, error)
	CreateBillingPortalSession(ctx context.Context, customerID string) (string, error)
}

type SessionService interface {
	Create(ctx context.Context, talentID string) (*models.ScoreSession, error)
	HandleEvent(ctx context.Context, state scoresync.SessionState) error
	Get(ctx context.Context, sessionID string) (*models.ScoreSession, error)
}

type TalentSearcher interface {
	Search(ctx context.Context, query search.Query) ([]search.Hit, error)
}

// Server bundles the services behind the HTTP surface.
type Server struct {
	auth      TokenIntrospector
	documents DocumentService
	summaries SummaryService
	letters   LetterService
	verifier  WebhookVerifier
	promos    PromoService
	payments  PaymentsService
	sessions  SessionService
	search    TalentSearcher
	logger    logger.Logger
}

func New(
	introspector TokenIntrospector,
	docSvc DocumentService,
	summarySvc SummaryService,
	letterSvc LetterService,
	verifier WebhookVerifier,
	promoSvc PromoService,
	paymentsSvc PaymentsService,
	sessionSvc SessionService,
	searcher TalentSearcher,
	log logger.Logger,
) *Server {
	return &Server{
		auth:      introspector,
		documents: docSvc,
		summaries: summarySvc,
		letters:   letterSvc,
		verifier:  verifier,
		promos:    promoSvc,
		payments:  paymentsSvc,
		sessions:  sessionSvc,
		search:    searcher,
		logger:    log.WithFields(map[string]interface{}{"component": "server"}),
	}
}

// internal/billing/promo.go
package billing

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/database"
	"talent-platform/internal/common/errors"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/models"

	"github.com/google/uuid"
)

// CouponCreator mirrors discount codes at the payment provider. Mirroring
// is best-effort; a promo code exists locally even when the provider call
// fails.
type CouponCreator interface {
	CreateCoupon(ctx context.Context, coupon *Coupon) (string, error)
}

type PromoService struct {
	db      *sql.DB
	coupons CouponCreator
	logger  logger.Logger
}

func NewPromoService(db *sql.DB, coupons CouponCreator, log logger.Logger) *PromoService {
	return &PromoService{
		db:      db,
		coupons: coupons,
		logger:  log.WithFields(map[string]interface{}{"component": "billing"}),
	}
}

// CreatePromoCodeInput carries the admin-supplied fields of a new code.
type CreatePromoCodeInput struct {
	Code           string           `json:"code"`
	Kind           models.PromoKind `json:"kind"`
	PercentOff     int              `json:"percentOff"`
	TrialDays      int              `json:"trialDays"`
	MaxRedemptions int              `json:"maxRedemptions"`
	ExpiresAt      *time.Time       `json:"expiresAt"`
}

// CreatePromoCode inserts a new code. A duplicate code is a Conflict and
// leaves the existing row untouched.
func (s *PromoService) CreatePromoCode(ctx context.Context, input CreatePromoCodeInput) (*models.PromoCode, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}
	if !ident.IsAdmin() {
		return nil, errors.NewForbiddenError("promo code creation requires the admin role")
	}

	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, errors.NewInvalidInputError("code is required")
	}
	switch input.Kind {
	case models.PromoTrial, models.PromoDiscount, models.PromoMembership:
	default:
		return nil, errors.NewInvalidInputError("unknown promo kind: " + string(input.Kind))
	}
	if input.Kind == models.PromoDiscount && (input.PercentOff < 1 || input.PercentOff > 100) {
		return nil, errors.NewInvalidInputError("percentOff must be between 1 and 100")
	}
	if input.Kind == models.PromoTrial && input.TrialDays < 1 {
		return nil, errors.NewInvalidInputError("trialDays must be positive")
	}

	promo := &models.PromoCode{
		ID:             uuid.New().String(),
		Code:           code,
		Kind:           input.Kind,
		PercentOff:     input.PercentOff,
		TrialDays:      input.TrialDays,
		MaxRedemptions: input.MaxRedemptions,
		ExpiresAt:      input.ExpiresAt,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO promo_codes
			(id, code, kind, percent_off, trial_days, max_redemptions, redeemed_count, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, NOW())`,
		promo.ID, promo.Code, string(promo.Kind), promo.PercentOff,
		promo.TrialDays, promo.MaxRedemptions, promo.ExpiresAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, errors.NewConflictError("promo code already exists: " + code)
		}
		return nil, errors.NewStorageError("insert promo code", err)
	}

	if s.coupons != nil && promo.Kind == models.PromoDiscount {
		if _, err := s.coupons.CreateCoupon(ctx, &Coupon{Code: promo.Code, PercentOff: promo.PercentOff}); err != nil {
			s.logger.Warn("coupon mirror failed", map[string]interface{}{
				"code":  promo.Code,
				"error": err,
			})
		}
	}

	return promo, nil
}

// ValidatePromoCode checks whether a code is currently redeemable without
// consuming a redemption.
func (s *PromoService) ValidatePromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	promo, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := redeemable(promo, time.Now().UTC()); err != nil {
		return nil, err
	}
	return promo, nil
}

// RedeemPromoCode consumes one redemption for the calling user. The counter
// increment is conditional on the cap so concurrent redemptions cannot
// oversubscribe a code.
func (s *PromoService) RedeemPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	ident, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, errors.NewUnauthorizedError("no session")
	}

	promo, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := redeemable(promo, time.Now().UTC()); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE promo_codes
		SET redeemed_count = redeemed_count + 1
		WHERE id = $1 AND (max_redemptions = 0 OR redeemed_count < max_redemptions)`,
		promo.ID)
	if err != nil {
		return nil, errors.NewStorageError("redeem promo code", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NewInvalidStateError("exhausted", "redeem")
	}
	promo.RedeemedCount++

	redemption := models.PromoRedemption{
		ID:      uuid.New().String(),
		PromoID: promo.ID,
		UserID:  ident.UserID,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO promo_redemptions (id, promo_id, user_id, redeemed_at)
		VALUES ($1, $2, $3, NOW())`,
		redemption.ID, redemption.PromoID, redemption.UserID)
	if err != nil {
		s.logger.Warn("redemption record write failed", map[string]interface{}{
			"code":  promo.Code,
			"error": err,
		})
	}

	return promo, nil
}

func (s *PromoService) load(ctx context.Context, code string) (*models.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, errors.NewInvalidInputError("code is required")
	}

	var promo models.PromoCode
	var kind string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, kind, percent_off, trial_days, max_redemptions, redeemed_count, expires_at, created_at
		FROM promo_codes WHERE code = $1`, code).Scan(
		&promo.ID, &promo.Code, &kind, &promo.PercentOff, &promo.TrialDays,
		&promo.MaxRedemptions, &promo.RedeemedCount, &expiresAt, &promo.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("promo code", code)
	}
	if err != nil {
		return nil, errors.NewStorageError("read promo code", err)
	}

	promo.Kind = models.PromoKind(kind)
	if expiresAt.Valid {
		promo.ExpiresAt = &expiresAt.Time
	}
	return &promo, nil
}

func redeemable(promo *models.PromoCode, now time.Time) error {
	if promo.ExpiresAt != nil && now.After(*promo.ExpiresAt) {
		return errors.NewInvalidStateError("expired", "redeem")
	}
	if promo.MaxRedemptions > 0 && promo.RedeemedCount >= promo.MaxRedemptions {
		return errors.NewInvalidStateError("exhausted", "redeem")
	}
	return nil
}

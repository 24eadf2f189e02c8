// Package premium answers whether a user currently holds paid-content
// entitlement. Every failure path degrades to "no access": a transient
// provider outage must never grant premium content.
package premium

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"clinica/internal/database"
	"clinica/internal/metrics"
	"clinica/internal/models"
)

// StatusAuthorized is the only provider status that grants entitlement.
const StatusAuthorized = "authorized"

// StatusProvider queries the live subscription status at the payment
// provider. Implementations must honour ctx cancellation.
type StatusProvider interface {
	PreapprovalStatus(ctx context.Context, preapprovalID string) (string, error)
}

// SubscriptionStore reads the locally cached subscription record.
type SubscriptionStore interface {
	GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error)
}

// Resolver combines the local subscription record with a live provider
// check.
type Resolver struct {
	store    SubscriptionStore
	provider StatusProvider
	logger   zerolog.Logger
}

// NewResolver creates a resolver. provider may be nil, in which case only
// the locally stored status is consulted.
func NewResolver(store SubscriptionStore, provider StatusProvider, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		provider: provider,
		logger:   logger.With().Str("component", "premium").Logger(),
	}
}

// HasAccess reports whether the user is entitled to premium content.
//
// A subscription with a preapproval reference is resolved against the
// provider and only "authorized" grants access; without a reference the
// local status must be ACTIVE. Missing records, provider errors and
// non-authorized statuses all yield false.
func (r *Resolver) HasAccess(ctx context.Context, userID string) bool {
	sub, err := r.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			r.logger.Error().Err(err).Str("user_id", userID).Msg("subscription lookup failed")
		}
		metrics.IncPremiumCheck("denied")
		return false
	}
	if sub == nil {
		metrics.IncPremiumCheck("denied")
		return false
	}

	if sub.PreapprovalID != "" && r.provider != nil {
		status, err := r.provider.PreapprovalStatus(ctx, sub.PreapprovalID)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("user_id", userID).
				Str("preapproval_id", sub.PreapprovalID).
				Msg("provider status check failed, denying access")
			metrics.IncProviderError()
			metrics.IncPremiumCheck("denied")
			return false
		}
		granted := status == StatusAuthorized
		if granted {
			metrics.IncPremiumCheck("granted")
		} else {
			metrics.IncPremiumCheck("denied")
		}
		return granted
	}

	granted := sub.Status == models.SubscriptionActive
	if granted {
		metrics.IncPremiumCheck("granted")
	} else {
		metrics.IncPremiumCheck("denied")
	}
	return granted
}

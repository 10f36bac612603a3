package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"scrap/internal/domain"
)

// DefaultPayoutTopic carries payout results from the payment gateway.
const DefaultPayoutTopic = "payout.resolved"

// PayoutResult is the payment gateway's verdict on one payout.
type PayoutResult struct {
	EntryID string             `json:"entry_id"`
	Status  domain.EntryStatus `json:"status"`
	Reason  string             `json:"reason,omitempty"`
}

// PayoutResolver applies payout results to the ledger.
type PayoutResolver interface {
	ResolvePayout(ctx context.Context, entryID string, status domain.EntryStatus) error
}

// PayoutHandler turns payout result messages into ledger updates.
type PayoutHandler struct {
	resolver PayoutResolver
}

// NewPayoutHandler creates a new PayoutHandler.
func NewPayoutHandler(resolver PayoutResolver) *PayoutHandler {
	return &PayoutHandler{resolver: resolver}
}

// Handle processes one message. Malformed messages and results for unknown or
// already resolved payouts are logged and dropped; the returned error is
// non-nil only when the message should be retried.
func (h *PayoutHandler) Handle(ctx context.Context, data []byte) error {
	var result PayoutResult
	if err := json.Unmarshal(data, &result); err != nil {
		log.Printf("[KAFKA] dropping malformed payout result: %v", err)
		return nil
	}
	if result.EntryID == "" {
		log.Printf("[KAFKA] dropping payout result without entry_id")
		return nil
	}

	err := h.resolver.ResolvePayout(ctx, result.EntryID, result.Status)
	switch {
	case err == nil:
		log.Printf("[KAFKA] payout %s resolved as %s", result.EntryID, result.Status)
		return nil
	case errors.Is(err, domain.ErrConflict):
		log.Printf("[KAFKA] payout %s already resolved, ignoring redelivery", result.EntryID)
		return nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrValidation):
		log.Printf("[KAFKA] dropping payout result for %s: %v", result.EntryID, err)
		return nil
	}
	return fmt.Errorf("resolve payout %s: %w", result.EntryID, err)
}

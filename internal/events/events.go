package events

// Accounting event types written to the outbox.
const (
	EventMovementPosted       = "movement_posted"
	EventPaymentMarkedPaid    = "payment_marked_paid"
	EventPaymentReverted      = "payment_reverted"
	EventCommissionPaid       = "commission_paid"
	EventCommissionReverted   = "commission_reverted"
	EventTransferCompleted    = "transfer_completed"
	EventExchangeFallbackUsed = "exchange_rate_fallback_used"
)

// MovementPayload captures the minimal data needed to follow up on a posting.
type MovementPayload struct {
	MovementID string `json:"movement_id"`
	Type       string `json:"type"`
	AccountID  string `json:"account_id"`
	Currency   string `json:"currency"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p MovementPayload) ToMap() map[string]any {
	return map[string]any{
		"movement_id": p.MovementID,
		"type":        p.Type,
		"account_id":  p.AccountID,
		"currency":    p.Currency,
	}
}

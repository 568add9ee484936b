package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
)

type recordMovementRequest struct {
	Type          string  `json:"type"`
	Currency      string  `json:"currency"`
	Amount        string  `json:"amount"`
	AccountID     *string `json:"account_id"`
	AccountKind   string  `json:"account_kind"`
	EventDate     string  `json:"event_date"`
	OperationID   *string `json:"operation_id"`
	LeadID        *string `json:"lead_id"`
	SellerID      *string `json:"seller_id"`
	OperatorID    *string `json:"operator_id"`
	ReceiptNumber string  `json:"receipt_number"`
	Notes         string  `json:"notes"`
}

func parseOptionalID(raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// @Summary      Record Movement
// @Description  Post one immutable ledger movement
// @Tags         movements
// @Accept       json
// @Produce      json
// @Router       /movements [post]
func (s *Server) RecordMovement(c *gin.Context) {
	var req recordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	currency, err := money.Parse(req.Currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a decimal number"))
		return
	}

	params := ledgerdomain.RecordParams{
		AgencyID:      s.agencyID(c),
		Type:          ledgerdomain.MovementType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Currency:      currency,
		Amount:        amount,
		AccountKind:   accountdomain.AccountKind(strings.ToLower(strings.TrimSpace(req.AccountKind))),
		ReceiptNumber: strings.TrimSpace(req.ReceiptNumber),
		Notes:         strings.TrimSpace(req.Notes),
		CreatedBy:     s.actingUser(c),
	}

	if req.AccountID != nil {
		id, err := parseOptionalID(req.AccountID)
		if err != nil {
			AbortWithError(c, newValidationError("account_id", "invalid_id", "invalid account id"))
			return
		}
		if id != nil {
			params.AccountID = *id
		}
	}
	if eventDate, err := parseOptionalDate(req.EventDate); err != nil {
		AbortWithError(c, newValidationError("event_date", "invalid_date", "event_date must be YYYY-MM-DD"))
		return
	} else if eventDate != nil {
		params.EventDate = *eventDate
	}

	for _, ref := range []struct {
		raw  *string
		dst  **snowflake.ID
		name string
	}{
		{req.OperationID, &params.OperationID, "operation_id"},
		{req.LeadID, &params.LeadID, "lead_id"},
		{req.SellerID, &params.SellerID, "seller_id"},
		{req.OperatorID, &params.OperatorID, "operator_id"},
	} {
		id, err := parseOptionalID(ref.raw)
		if err != nil {
			AbortWithError(c, newValidationError(ref.name, "invalid_id", "invalid "+ref.name))
			return
		}
		*ref.dst = id
	}

	movementID, err := s.ledgerSvc.Record(c.Request.Context(), params)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"movement_id": movementID}})
}

// @Summary      List Movements
// @Description  List an account's movements, newest first
// @Tags         movements
// @Produce      json
// @Router       /accounts/{id}/movements [get]
func (s *Server) ListMovements(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid account id"))
		return
	}

	if err := s.accountOwned(c, accountID); err != nil {
		AbortWithError(c, err)
		return
	}

	movements, err := s.ledgerSvc.Movements(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": movements})
}

package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
)

type defaultCashBoxRequest struct {
	Currency string `json:"currency"`
}

// @Summary      Get Or Create Default Cash Box
// @Tags         cash-boxes
// @Accept       json
// @Produce      json
// @Router       /cash-boxes/default [post]
func (s *Server) GetOrCreateDefaultCashBox(c *gin.Context) {
	var req defaultCashBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	currency, err := money.Parse(req.Currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	box, err := s.cashboxSvc.GetOrCreateDefault(c.Request.Context(), s.agencyID(c), currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": box})
}

// @Summary      Get Cash Box
// @Tags         cash-boxes
// @Produce      json
// @Router       /cash-boxes/{id} [get]
func (s *Server) GetCashBox(c *gin.Context) {
	boxID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid cash box id"))
		return
	}

	box, err := s.cashboxSvc.Get(c.Request.Context(), boxID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if box.AgencyID != s.agencyID(c) {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": box})
}

// @Summary      Deactivate Cash Box
// @Tags         cash-boxes
// @Produce      json
// @Router       /cash-boxes/{id}/deactivate [post]
func (s *Server) DeactivateCashBox(c *gin.Context) {
	boxID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid cash box id"))
		return
	}

	box, err := s.cashboxSvc.Get(c.Request.Context(), boxID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if box.AgencyID != s.agencyID(c) {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.cashboxSvc.Deactivate(c.Request.Context(), boxID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type cashTransferRequest struct {
	FromBoxID string  `json:"from_box_id"`
	ToBoxID   string  `json:"to_box_id"`
	Amount    string  `json:"amount"`
	Currency  string  `json:"currency"`
	Rate      *string `json:"rate"`
	Date      string  `json:"date"`
}

// @Summary      Create Cash Transfer
// @Description  Move funds between boxes, converting across currencies
// @Tags         cash-boxes
// @Accept       json
// @Produce      json
// @Router       /cash-transfers [post]
func (s *Server) CreateCashTransfer(c *gin.Context) {
	var req cashTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	fromBoxID, err := snowflake.ParseString(strings.TrimSpace(req.FromBoxID))
	if err != nil {
		AbortWithError(c, newValidationError("from_box_id", "invalid_id", "invalid source box id"))
		return
	}
	toBoxID, err := snowflake.ParseString(strings.TrimSpace(req.ToBoxID))
	if err != nil {
		AbortWithError(c, newValidationError("to_box_id", "invalid_id", "invalid destination box id"))
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a decimal number"))
		return
	}
	currency, err := money.Parse(req.Currency)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	rate, err := parseOptionalDecimal(req.Rate)
	if err != nil {
		AbortWithError(c, newValidationError("rate", "invalid_rate", "rate must be a decimal number"))
		return
	}

	params := cashboxdomain.TransferParams{
		AgencyID:  s.agencyID(c),
		FromBoxID: fromBoxID,
		ToBoxID:   toBoxID,
		Amount:    amount,
		Currency:  currency,
		Rate:      rate,
		CreatedBy: s.actingUser(c),
	}
	if date, err := parseOptionalDate(req.Date); err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD"))
		return
	} else if date != nil {
		params.Date = *date
	}

	transfer, err := s.cashboxSvc.Transfer(c.Request.Context(), params)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transfer})
}

package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tometh04/vibook-accounting/internal/money"
	paymentdomain "github.com/tometh04/vibook-accounting/internal/payment/domain"
)

type createPaymentRequest struct {
	OperationID *string `json:"operation_id"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	DateDue     string  `json:"date_due"`
	Reference   string  `json:"reference"`
}

// @Summary      Create Payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Router       /payments [post]
func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
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
	operationID, err := parseOptionalID(req.OperationID)
	if err != nil {
		AbortWithError(c, newValidationError("operation_id", "invalid_id", "invalid operation id"))
		return
	}
	dateDue, err := parseOptionalDate(req.DateDue)
	if err != nil {
		AbortWithError(c, newValidationError("date_due", "invalid_date", "date_due must be YYYY-MM-DD"))
		return
	}

	payment := &paymentdomain.Payment{
		AgencyID:    s.agencyID(c),
		OperationID: operationID,
		Amount:      amount,
		Currency:    currency,
		DateDue:     dateDue,
		Reference:   strings.TrimSpace(req.Reference),
		CreatedBy:   s.actingUser(c),
	}
	if err := s.paymentSvc.Create(c.Request.Context(), payment); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

// @Summary      Get Payment
// @Tags         payments
// @Produce      json
// @Router       /payments/{id} [get]
func (s *Server) GetPayment(c *gin.Context) {
	paymentID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return
	}

	payment, err := s.paymentSvc.Get(c.Request.Context(), paymentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment.AgencyID != s.agencyID(c) {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payment})
}

type markPaidRequest struct {
	DatePaid  string  `json:"date_paid"`
	AccountID *string `json:"account_id"`
	Reference string  `json:"reference"`
}

// @Summary      Mark Payment Paid
// @Description  Reconcile the payment and post its INCOME movement
// @Tags         payments
// @Accept       json
// @Produce      json
// @Router       /payments/{id}/pay [post]
func (s *Server) MarkPaymentPaid(c *gin.Context) {
	paymentID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return
	}

	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	datePaid, err := parseDate(req.DatePaid)
	if err != nil {
		AbortWithError(c, paymentdomain.ErrMissingDatePaid)
		return
	}
	var accountID snowflake.ID
	if id, err := parseOptionalID(req.AccountID); err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_id", "invalid account id"))
		return
	} else if id != nil {
		accountID = *id
	}

	if err := s.paymentOwned(c, paymentID); err != nil {
		AbortWithError(c, err)
		return
	}

	movementID, err := s.paymentSvc.MarkPaid(c.Request.Context(), paymentID, datePaid, accountID, strings.TrimSpace(req.Reference))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"movement_id": movementID}})
}

// @Summary      Revert Payment
// @Description  Delete the reconciliation movement and return to PENDING
// @Tags         payments
// @Produce      json
// @Router       /payments/{id}/revert [post]
func (s *Server) RevertPayment(c *gin.Context) {
	paymentID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return
	}

	if err := s.paymentOwned(c, paymentID); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.paymentSvc.RevertPaid(c.Request.Context(), paymentID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// paymentOwned rejects ids that resolve outside the request's agency. Foreign
// payments read as absent so the route does not leak existence.
func (s *Server) paymentOwned(c *gin.Context, paymentID snowflake.ID) error {
	payment, err := s.paymentSvc.Get(c.Request.Context(), paymentID)
	if err != nil {
		return err
	}
	if payment.AgencyID != s.agencyID(c) {
		return ErrNotFound
	}
	return nil
}

// @Summary      Sweep Overdue Payments
// @Description  Flip PENDING payments past due date to OVERDUE
// @Tags         payments
// @Produce      json
// @Router       /payments/sweep-overdue [post]
func (s *Server) SweepOverduePayments(c *gin.Context) {
	count, err := s.paymentSvc.SweepOverdue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"swept": count}})
}

// @Summary      Repair Unlinked Payments
// @Description  Re-post movements for PAID payments missing their ledger link
// @Tags         payments
// @Produce      json
// @Router       /maintenance/repair-unlinked [post]
func (s *Server) RepairUnlinkedPayments(c *gin.Context) {
	results, err := s.paymentSvc.RepairUnlinked(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	repaired := make([]gin.H, 0, len(results))
	for _, r := range results {
		repaired = append(repaired, gin.H{
			"payment_id":  r.PaymentID,
			"movement_id": r.MovementID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"repaired": repaired}})
}

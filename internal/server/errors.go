package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	commissiondomain "github.com/tometh04/vibook-accounting/internal/commission/domain"
	exchangeratedomain "github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
	paymentdomain "github.com/tometh04/vibook-accounting/internal/payment/domain"
)

// ErrNotFound is the catch-all for routes that must not reveal whether the
// resource exists.
var ErrNotFound = errors.New("not_found")

type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *apiError) Error() string { return e.Code }

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request body"}
}

func newValidationError(field, code, message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

// statusFor maps domain sentinel errors onto HTTP status codes. Unknown
// errors surface as 500 without leaking internals.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrAccountNotFound),
		errors.Is(err, ledgerdomain.ErrMovementNotFound),
		errors.Is(err, commissiondomain.ErrSchemeNotFound),
		errors.Is(err, commissiondomain.ErrCommissionNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, cashboxdomain.ErrBoxNotFound):
		return http.StatusNotFound
	case errors.Is(err, paymentdomain.ErrDuplicatePosting),
		errors.Is(err, commissiondomain.ErrAlreadyPaid),
		errors.Is(err, commissiondomain.ErrNotPaid),
		errors.Is(err, ledgerdomain.ErrCommissionState),
		errors.Is(err, paymentdomain.ErrNotPaid),
		errors.Is(err, accountdomain.ErrInactiveResource),
		errors.Is(err, cashboxdomain.ErrInactiveResource):
		return http.StatusConflict
	case errors.Is(err, cashboxdomain.ErrInsufficientBalance),
		errors.Is(err, exchangeratedomain.ErrRateMissing),
		errors.Is(err, accountdomain.ErrAccountResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledgerdomain.ErrInvalidType),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidAgency),
		errors.Is(err, accountdomain.ErrInvalidKind),
		errors.Is(err, accountdomain.ErrInvalidAgency),
		errors.Is(err, exchangeratedomain.ErrInvalidRate),
		errors.Is(err, exchangeratedomain.ErrInvalidAgency),
		errors.Is(err, commissiondomain.ErrInvalidScheme),
		errors.Is(err, commissiondomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidAgency),
		errors.Is(err, paymentdomain.ErrMissingDatePaid),
		errors.Is(err, cashboxdomain.ErrInvalidAmount),
		errors.Is(err, cashboxdomain.ErrInvalidAgency),
		errors.Is(err, cashboxdomain.ErrSameBox),
		errors.Is(err, cashboxdomain.ErrCurrencyMismatch),
		errors.Is(err, money.ErrUnsupportedCurrency):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes the error response and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	var api *apiError
	if errors.As(err, &api) {
		c.AbortWithStatusJSON(api.Status, gin.H{"error": api})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": "internal_error", "message": "internal error"}})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": err.Error(), "message": err.Error()}})
}

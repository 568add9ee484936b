package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	accountdomain "github.com/tometh04/vibook-accounting/internal/account/domain"
	cashboxdomain "github.com/tometh04/vibook-accounting/internal/cashbox/domain"
	commissiondomain "github.com/tometh04/vibook-accounting/internal/commission/domain"
	exchangeratedomain "github.com/tometh04/vibook-accounting/internal/exchangerate/domain"
	ledgerdomain "github.com/tometh04/vibook-accounting/internal/ledger/domain"
	paymentdomain "github.com/tometh04/vibook-accounting/internal/payment/domain"
	"github.com/tometh04/vibook-accounting/internal/tenantcontext"
)

func TestStatusForDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{paymentdomain.ErrPaymentNotFound, http.StatusNotFound},
		{cashboxdomain.ErrBoxNotFound, http.StatusNotFound},
		{paymentdomain.ErrDuplicatePosting, http.StatusConflict},
		{commissiondomain.ErrAlreadyPaid, http.StatusConflict},
		{ledgerdomain.ErrCommissionState, http.StatusConflict},
		{accountdomain.ErrInactiveResource, http.StatusConflict},
		{cashboxdomain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{exchangeratedomain.ErrRateMissing, http.StatusUnprocessableEntity},
		{accountdomain.ErrAccountResolution, http.StatusUnprocessableEntity},
		{ledgerdomain.ErrInvalidAmount, http.StatusBadRequest},
		{cashboxdomain.ErrSameBox, http.StatusBadRequest},
		{paymentdomain.ErrMissingDatePaid, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}

	// Wrapped sentinels keep their mapping.
	wrapped := fmt.Errorf("transfer 33: %w", cashboxdomain.ErrInsufficientBalance)
	if got := statusFor(wrapped); got != http.StatusUnprocessableEntity {
		t.Errorf("statusFor(wrapped) = %d, want 422", got)
	}
}

func TestAbortWithErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/ping", nil)

	AbortWithError(c, errors.New("pq: connection refused"))

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", recorder.Code)
	}
	body := recorder.Body.String()
	if body == "" || strings.Contains(body, "connection refused") {
		t.Fatalf("body leaks internals: %s", body)
	}
}

func TestTenantContextRequiresAgencyHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{}

	engine := gin.New()
	engine.Use(s.TenantContext())
	var seenAgency, seenUser string
	engine.GET("/ping", func(c *gin.Context) {
		seenAgency = tenantcontext.AgencyIDFromContext(c.Request.Context()).String()
		seenUser = tenantcontext.ActingUserFromContext(c.Request.Context()).String()
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("no header status = %d, want 400", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Agency-Id", "42")
	req.Header.Set("X-User-Id", "7")
	engine.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("with header status = %d, want 204", recorder.Code)
	}
	if seenAgency != "42" || seenUser != "7" {
		t.Fatalf("context carried agency=%s user=%s, want 42/7", seenAgency, seenUser)
	}
}

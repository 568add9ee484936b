package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type putExchangeRateRequest struct {
	Date string `json:"date"`
	Rate string `json:"rate"`
}

// @Summary      Put Exchange Rate
// @Description  Upsert the USD to ARS rate for one calendar date
// @Tags         exchange-rates
// @Accept       json
// @Produce      json
// @Router       /exchange-rates [post]
func (s *Server) PutExchangeRate(c *gin.Context) {
	var req putExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD"))
		return
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		AbortWithError(c, newValidationError("rate", "invalid_rate", "rate must be a decimal number"))
		return
	}

	resp, err := s.rateSvc.Put(c.Request.Context(), s.agencyID(c), date, rate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Resolve Exchange Rate
// @Description  Resolve the rate for a date through the fallback chain
// @Tags         exchange-rates
// @Produce      json
// @Param        date  query  string  true  "Date (YYYY-MM-DD)"
// @Router       /exchange-rates/resolve [get]
func (s *Server) ResolveExchangeRate(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		AbortWithError(c, newValidationError("date", "invalid_date", "date must be YYYY-MM-DD"))
		return
	}

	resolution, err := s.rateSvc.Resolve(c.Request.Context(), nil, s.agencyID(c), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"rate": resolution.Rate,
		"tier": resolution.Tier,
	}})
}

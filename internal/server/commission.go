package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	commissiondomain "github.com/tometh04/vibook-accounting/internal/commission/domain"
	"github.com/tometh04/vibook-accounting/internal/money"
)

type tierRequest struct {
	Min        string  `json:"min"`
	Max        *string `json:"max"`
	Percentage string  `json:"percentage"`
}

type createSchemeRequest struct {
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	Percentage   *string       `json:"percentage"`
	FixedAmount  *string       `json:"fixed_amount"`
	Tiers        []tierRequest `json:"tiers"`
	MinThreshold *string       `json:"min_threshold"`
	MaxCap       *string       `json:"max_cap"`
}

func parseOptionalDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// @Summary      Create Commission Scheme
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Router       /commission-schemes [post]
func (s *Server) CreateCommissionScheme(c *gin.Context) {
	var req createSchemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	scheme := &commissiondomain.Scheme{
		AgencyID: s.agencyID(c),
		Name:     strings.TrimSpace(req.Name),
		Type:     commissiondomain.SchemeType(strings.ToLower(strings.TrimSpace(req.Type))),
	}

	var err error
	if scheme.Percentage, err = parseOptionalDecimal(req.Percentage); err != nil {
		AbortWithError(c, newValidationError("percentage", "invalid_decimal", "percentage must be a decimal number"))
		return
	}
	if scheme.FixedAmount, err = parseOptionalDecimal(req.FixedAmount); err != nil {
		AbortWithError(c, newValidationError("fixed_amount", "invalid_decimal", "fixed_amount must be a decimal number"))
		return
	}
	if scheme.MinThreshold, err = parseOptionalDecimal(req.MinThreshold); err != nil {
		AbortWithError(c, newValidationError("min_threshold", "invalid_decimal", "min_threshold must be a decimal number"))
		return
	}
	if scheme.MaxCap, err = parseOptionalDecimal(req.MaxCap); err != nil {
		AbortWithError(c, newValidationError("max_cap", "invalid_decimal", "max_cap must be a decimal number"))
		return
	}

	if len(req.Tiers) > 0 {
		tiers := make([]commissiondomain.Tier, 0, len(req.Tiers))
		for _, t := range req.Tiers {
			min, err := decimal.NewFromString(strings.TrimSpace(t.Min))
			if err != nil {
				AbortWithError(c, newValidationError("tiers", "invalid_decimal", "tier min must be a decimal number"))
				return
			}
			percentage, err := decimal.NewFromString(strings.TrimSpace(t.Percentage))
			if err != nil {
				AbortWithError(c, newValidationError("tiers", "invalid_decimal", "tier percentage must be a decimal number"))
				return
			}
			max, err := parseOptionalDecimal(t.Max)
			if err != nil {
				AbortWithError(c, newValidationError("tiers", "invalid_decimal", "tier max must be a decimal number"))
				return
			}
			tiers = append(tiers, commissiondomain.Tier{Min: min, Max: max, Percentage: percentage})
		}
		if err := scheme.SetTierList(tiers); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	if err := s.commSvc.CreateScheme(c.Request.Context(), scheme); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": scheme})
}

// @Summary      Get Commission Scheme
// @Tags         commissions
// @Produce      json
// @Router       /commission-schemes/{id} [get]
func (s *Server) GetCommissionScheme(c *gin.Context) {
	schemeID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid scheme id"))
		return
	}

	scheme, err := s.commSvc.GetScheme(c.Request.Context(), schemeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if scheme.AgencyID != s.agencyID(c) {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": scheme})
}

type computeCommissionRequest struct {
	BaseAmount         string `json:"base_amount"`
	HasSecondarySeller bool   `json:"has_secondary_seller"`
}

// @Summary      Compute Commission
// @Description  Apply a stored scheme to a base amount
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Router       /commission-schemes/{id}/compute [post]
func (s *Server) ComputeCommission(c *gin.Context) {
	schemeID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid scheme id"))
		return
	}

	var req computeCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	baseAmount, err := decimal.NewFromString(strings.TrimSpace(req.BaseAmount))
	if err != nil {
		AbortWithError(c, newValidationError("base_amount", "invalid_amount", "base_amount must be a decimal number"))
		return
	}

	breakdown, err := s.commSvc.ComputeForScheme(c.Request.Context(), schemeID, baseAmount, req.HasSecondarySeller)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"total":     breakdown.Total,
		"primary":   breakdown.Primary,
		"secondary": breakdown.Secondary,
	}})
}

type createCommissionRequest struct {
	OperationID string `json:"operation_id"`
	SellerID    string `json:"seller_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// @Summary      Create Commission
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Router       /commissions [post]
func (s *Server) CreateCommission(c *gin.Context) {
	var req createCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	operationID, err := snowflake.ParseString(strings.TrimSpace(req.OperationID))
	if err != nil {
		AbortWithError(c, newValidationError("operation_id", "invalid_id", "invalid operation id"))
		return
	}
	sellerID, err := snowflake.ParseString(strings.TrimSpace(req.SellerID))
	if err != nil {
		AbortWithError(c, newValidationError("seller_id", "invalid_id", "invalid seller id"))
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

	commission := &commissiondomain.Commission{
		AgencyID:    s.agencyID(c),
		OperationID: operationID,
		SellerID:    sellerID,
		Amount:      amount,
		Currency:    currency,
	}
	if err := s.commSvc.CreateCommission(c.Request.Context(), commission); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": commission})
}

type payCommissionRequest struct {
	AccountID *string `json:"account_id"`
}

// @Summary      Pay Commission
// @Description  Post the payout movement and flip the commission to PAID
// @Tags         commissions
// @Accept       json
// @Produce      json
// @Router       /commissions/{id}/pay [post]
func (s *Server) PayCommission(c *gin.Context) {
	commissionID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid commission id"))
		return
	}

	var req payCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	var accountID snowflake.ID
	if id, err := parseOptionalID(req.AccountID); err != nil {
		AbortWithError(c, newValidationError("account_id", "invalid_id", "invalid account id"))
		return
	} else if id != nil {
		accountID = *id
	}

	if err := s.commissionOwned(c, commissionID); err != nil {
		AbortWithError(c, err)
		return
	}

	movementID, err := s.commSvc.Pay(c.Request.Context(), commissionID, accountID, s.actingUser(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"movement_id": movementID}})
}

// @Summary      Revert Commission
// @Description  Delete the payout movement and reset the commission to PENDING
// @Tags         commissions
// @Produce      json
// @Router       /commissions/{id}/revert [post]
func (s *Server) RevertCommission(c *gin.Context) {
	commissionID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid commission id"))
		return
	}

	if err := s.commissionOwned(c, commissionID); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.commSvc.Revert(c.Request.Context(), commissionID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// commissionOwned rejects ids that resolve outside the request's agency.
func (s *Server) commissionOwned(c *gin.Context, commissionID snowflake.ID) error {
	commission, err := s.commSvc.GetCommission(c.Request.Context(), commissionID)
	if err != nil {
		return err
	}
	if commission.AgencyID != s.agencyID(c) {
		return ErrNotFound
	}
	return nil
}

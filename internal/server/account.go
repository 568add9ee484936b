package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// @Summary      Get Account
// @Tags         accounts
// @Produce      json
// @Router       /accounts/{id} [get]
func (s *Server) GetAccount(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid account id"))
		return
	}

	account, err := s.accountSvc.Get(c.Request.Context(), nil, accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if account.AgencyID != s.agencyID(c) {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": account})
}

// @Summary      Deactivate Account
// @Description  Soft-deactivate; posted movements keep referencing the account
// @Tags         accounts
// @Produce      json
// @Router       /accounts/{id}/deactivate [post]
func (s *Server) DeactivateAccount(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid account id"))
		return
	}

	account, err := s.accountSvc.Get(c.Request.Context(), nil, accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if account.AgencyID != s.agencyID(c) {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.accountSvc.Deactivate(c.Request.Context(), accountID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary      Get Balance
// @Description  Replay the account's movements into a current balance
// @Tags         accounts
// @Produce      json
// @Router       /accounts/{id}/balance [get]
func (s *Server) GetBalance(c *gin.Context) {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid account id"))
		return
	}

	if err := s.accountOwned(c, accountID); err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.accountSvc.Balance(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"account_id": accountID,
		"balance":    balance,
	}})
}

type balancesRequest struct {
	AccountIDs []string `json:"account_ids"`
}

// @Summary      Get Balances
// @Description  Batch balance query; results match N single calls
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Router       /accounts/balances [post]
func (s *Server) GetBalances(c *gin.Context) {
	var req balancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ids := make([]snowflake.ID, 0, len(req.AccountIDs))
	for _, raw := range req.AccountIDs {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("account_ids", "invalid_id", "invalid account id: "+raw))
			return
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		if err := s.accountOwned(c, id); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	balances, err := s.accountSvc.Balances(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make(map[string]string, len(balances))
	for id, balance := range balances {
		out[id.String()] = balance.String()
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// accountOwned rejects ids that resolve outside the request's agency. Foreign
// accounts read as absent so the route does not leak existence.
func (s *Server) accountOwned(c *gin.Context, accountID snowflake.ID) error {
	account, err := s.accountSvc.Get(c.Request.Context(), nil, accountID)
	if err != nil {
		return err
	}
	if account.AgencyID != s.agencyID(c) {
		return ErrNotFound
	}
	return nil
}

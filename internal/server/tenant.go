package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/tometh04/vibook-accounting/internal/tenantcontext"
)

const (
	headerAgencyID = "X-Agency-Id"
	headerUserID   = "X-User-Id"
)

// TenantContext requires X-Agency-Id on every request and threads it, plus
// the optional acting user, through the request context. Authentication is
// the caller's concern; the core only scopes data by the agency id it is
// handed.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyID, err := parseSnowflakeHeader(c, headerAgencyID)
		if err != nil || agencyID == 0 {
			AbortWithError(c, newValidationError(headerAgencyID, "missing_agency", "X-Agency-Id header is required"))
			return
		}

		ctx := tenantcontext.WithAgencyID(c.Request.Context(), agencyID)
		if userID, err := parseSnowflakeHeader(c, headerUserID); err == nil && userID != 0 {
			ctx = tenantcontext.WithActingUser(ctx, userID)
		}
		if requestID := c.Writer.Header().Get("X-Request-Id"); requestID != "" {
			ctx = tenantcontext.WithRequestID(ctx, requestID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func parseSnowflakeHeader(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.GetHeader(name))
	if raw == "" {
		return 0, nil
	}
	return snowflake.ParseString(raw)
}

func (s *Server) agencyID(c *gin.Context) snowflake.ID {
	return tenantcontext.AgencyIDFromContext(c.Request.Context())
}

func (s *Server) actingUser(c *gin.Context) snowflake.ID {
	return tenantcontext.ActingUserFromContext(c.Request.Context())
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(c.Param(name)))
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hhfoundation/internal/helpapi"
)

// respondEngineError maps engine sentinels onto HTTP answers with enough
// structure (code + message) for the client to route the member to the right
// resolution path. CLAIM_CONFLICT only escapes the selector on a force-assign
// against an occupied slot.
func respondEngineError(c *gin.Context, err error) {
	code := err.Error()
	switch {
	case errors.Is(err, helpapi.ErrNoEligibleReceiver):
		c.JSON(http.StatusConflict, gin.H{"error": "no eligible receiver available, retry later", "code": code})
	case errors.Is(err, helpapi.ErrInvalidAmount):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "amount does not match the level configuration", "code": code})
	case errors.Is(err, helpapi.ErrBlockedAccount):
		c.JSON(http.StatusForbidden, gin.H{"error": "account is blocked", "code": code})
	case errors.Is(err, helpapi.ErrOnHold):
		c.JSON(http.StatusForbidden, gin.H{"error": "account is on hold until the overdue payment resolves", "code": code})
	case errors.Is(err, helpapi.ErrReceivingHeld):
		c.JSON(http.StatusForbidden, gin.H{"error": "receiving is held pending review", "code": code})
	case errors.Is(err, helpapi.ErrNotYours):
		c.JSON(http.StatusForbidden, gin.H{"error": "not your record", "code": code})
	case errors.Is(err, helpapi.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "code": code})
	case errors.Is(err, helpapi.ErrAlreadyActive):
		c.JSON(http.StatusConflict, gin.H{"error": "an active help already exists", "code": code})
	case errors.Is(err, helpapi.ErrUpgradeNotOpen):
		c.JSON(http.StatusConflict, gin.H{"error": "upgrade is not open for this member", "code": code})
	case errors.Is(err, helpapi.ErrBadTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "record is not in the required state", "code": code})
	case errors.Is(err, helpapi.ErrClaimConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "claim conflict", "code": code})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

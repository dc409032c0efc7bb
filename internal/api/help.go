package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"hhfoundation/internal/helpapi"
)

type requestHelpParams struct {
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
}

type confirmPaymentParams struct {
	Amount int64 `json:"amount" binding:"required"`
}

type PaginatedHelps struct {
	Count    int                  `json:"count"`
	Next     string               `json:"next"`
	Previous string               `json:"previous"`
	Results  []helpapi.Assignment `json:"results"`
}

// RequestHelp creates the pending record and synchronously runs the matching
// engine. NO_ELIGIBLE_RECEIVER comes back with the pending record attached:
// the reconciler keeps retrying it in the background.
func RequestHelp(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	memberId := c.GetUint("member_id")
	var params requestHelpParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := helpapi.RequestHelp(app.Db, memberId, params.IdempotencyKey)
	if err != nil {
		if record != nil {
			c.JSON(http.StatusAccepted, gin.H{
				"help":  record,
				"code":  err.Error(),
				"error": "no eligible receiver right now, the request stays queued",
			})
			return
		}
		respondEngineError(c, err)
		return
	}
	helpapi.PublishAssignmentEvent(app.Rdb, record, "help_assigned",
		fmt.Sprintf("Help %s assigned", record.HelpId))
	c.JSON(http.StatusCreated, gin.H{"help": record})
}

// RequestUpgrade opens the separate upgrade-payment record for a
// matrix-complete member.
func RequestUpgrade(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	memberId := c.GetUint("member_id")
	var params requestHelpParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := helpapi.RequestUpgrade(app.Db, memberId, params.IdempotencyKey)
	if err != nil {
		if record != nil {
			c.JSON(http.StatusAccepted, gin.H{
				"help":  record,
				"code":  err.Error(),
				"error": "no eligible receiver right now, the request stays queued",
			})
			return
		}
		respondEngineError(c, err)
		return
	}
	helpapi.PublishAssignmentEvent(app.Rdb, record, "help_assigned",
		fmt.Sprintf("Upgrade payment %s assigned", record.HelpId))
	c.JSON(http.StatusCreated, gin.H{"help": record})
}

// ConfirmPayment is the sender marking the money sent.
func ConfirmPayment(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	memberId := c.GetUint("member_id")
	helpId := c.Param("helpId")
	var params confirmPaymentParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := helpapi.ConfirmPayment(app.Db, helpId, memberId, params.Amount)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	helpapi.PublishAssignmentEvent(app.Rdb, record, "payment_confirmed",
		fmt.Sprintf("Payment of %d reported on %s", record.Amount, record.HelpId))
	c.JSON(http.StatusOK, gin.H{"help": record})
}

// ConfirmReceipt is the receiver's explicit acknowledgment; it is the only
// path to verified and it triggers progression.
func ConfirmReceipt(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	memberId := c.GetUint("member_id")
	helpId := c.Param("helpId")
	record, err := helpapi.ConfirmReceipt(app.Db, helpId, memberId)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	helpapi.PublishAssignmentEvent(app.Rdb, record, "receipt_verified",
		fmt.Sprintf("Help %s verified", record.HelpId))
	c.JSON(http.StatusOK, gin.H{"help": record})
}

// GetHelpList returns the member's send and receive history, newest first.
// Hidden records are filtered out of the member view.
func GetHelpList(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	memberId := c.GetUint("member_id")
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	var helps []helpapi.Assignment
	app.Db.Where("(sender_id = ? OR receiver_id = ?) AND hidden = ?", memberId, memberId, false).
		Order("created_at DESC").
		Find(&helps)
	c.JSON(http.StatusOK, paginateHelps(helps, page, size))
}

func paginateHelps(helps []helpapi.Assignment, page int, size int) (paginated PaginatedHelps) {
	paginated.Results = []helpapi.Assignment{}
	feedLen := len(helps)
	i := (page - 1) * size
	if feedLen <= i {
		return paginated
	}
	if feedLen > page*size {
		paginated.Next = fmt.Sprintf("/help/list/?page=%d&size=%d", page+1, size)
	}
	if page > 1 {
		paginated.Previous = fmt.Sprintf("/help/list/?page=%d&size=%d", page-1, size)
	}
	paginated.Count = feedLen
	j := i + size
	if j > feedLen {
		j = feedLen
	}
	paginated.Results = helps[i:j]
	return paginated
}

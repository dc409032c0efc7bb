package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"hhfoundation/internal/helpapi"
)

type forceAssignParams struct {
	ReceiverId uint `json:"receiver_id" binding:"required"`
}

// ForceAssign is the administrative bypass of the eligibility filter. The
// at-most-one-claim invariant still holds and the override is audit-logged.
func ForceAssign(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	actorId := c.GetUint("member_id")
	helpId := c.Param("helpId")
	var params forceAssignParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := helpapi.ForceAssignReceiver(app.Db, helpId, params.ReceiverId, actorId)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	msg := fmt.Sprintf("FORCE ASSIGN Help: %s Receiver: %d Actor: %d",
		helpapi.EscapeMarkdownV2(helpId), params.ReceiverId, actorId)
	if err := helpapi.SendTelegramMessage(msg, "ops"); err != nil {
		fmt.Println("[Admin] telegram notify failed:", err.Error())
	}
	helpapi.PublishAssignmentEvent(app.Rdb, record, "help_assigned",
		fmt.Sprintf("Help %s assigned", record.HelpId))
	c.JSON(http.StatusOK, gin.H{"help": record})
}

// UnblockMember clears every suspension flag on one member. The endpoint
// performs no verification of the underlying obligation, the caller is
// trusted, so the call lands in the audit log.
func UnblockMember(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	actorId := c.GetUint("member_id")
	slug := c.Param("memberId")

	var member helpapi.Member
	res := app.Db.Where("member_id = ?", slug).First(&member)
	if res.RowsAffected != 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	if err := helpapi.ResumeBlockedReceives(app.Db, member.Id, actorId); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unblocked", "member_id": slug})
}

// BulkUnlock is the batch amnesty for system-blocked members.
func BulkUnlock(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	actorId := c.GetUint("member_id")
	var filter helpapi.BulkUnlockFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unlocked, err := helpapi.BulkUnlock(app.Db, filter, actorId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": unlocked})
}

// TriggerReassign enqueues an immediate reassignment pass on the
// reconciliation queue, same task the scheduler fires periodically.
func TriggerReassign(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	info, err := app.Aqc.Enqueue(asynq.NewTask(helpapi.TaskReassign, nil), asynq.Queue("reconcile"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
}

// TriggerExpire enqueues an immediate payment-window sweep.
func TriggerExpire(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	info, err := app.Aqc.Enqueue(asynq.NewTask(helpapi.TaskExpire, nil), asynq.Queue("reconcile"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
}

// WorkerStatus reports the reconciliation queue through the asynq inspector.
func WorkerStatus(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	info, err := app.Aqi.GetQueueInfo("reconcile")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queue":     info.Queue,
		"size":      info.Size,
		"active":    info.Active,
		"pending":   info.Pending,
		"processed": info.Processed,
		"failed":    info.Failed,
	})
}

// HideHelp flips the administrative visibility flag on a record.
func HideHelp(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	actorId := c.GetUint("member_id")
	helpId := c.Param("helpId")
	if err := helpapi.HideAssignment(app.Db, helpId, actorId); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "hidden", "help_id": helpId})
}

// ActivateMember flips the activation flag once the activation fee cleared.
func ActivateMember(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	slug := c.Param("memberId")
	visibility := true
	if raw := c.DefaultQuery("visibility", "1"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err == nil && v == 0 {
			visibility = false
		}
	}
	res := app.Db.Model(&helpapi.Member{}).
		Where("member_id = ?", slug).
		Updates(map[string]interface{}{
			"is_activated":    true,
			"help_visibility": visibility,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	}
	if res.RowsAffected != 1 {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "activated", "member_id": slug})
}

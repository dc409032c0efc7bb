package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hhfoundation/internal/helpapi"
)

const diagCacheKey = "eligibility_snapshot"

// GetEligibility exposes the read-only operability surface: per level, the
// count of eligible receivers and the breakdown of why everyone else is
// excluded. Without this an empty pool is indistinguishable from a data
// error. Snapshot is cached briefly, staleness here only affects dashboards.
func GetEligibility(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)

	cached, _ := app.Rdb.Get(context.Background(), diagCacheKey).Result()
	if len(cached) > 0 {
		var snapshot []helpapi.LevelDiagnostics
		if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
			c.JSON(http.StatusOK, gin.H{"levels": snapshot, "cached": true})
			return
		}
	}

	snapshot, err := helpapi.EligibilitySnapshot(app.Db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if raw, err := json.Marshal(snapshot); err == nil {
		app.Rdb.Set(context.Background(), diagCacheKey, raw, 30*time.Second)
	}
	c.JSON(http.StatusOK, gin.H{"levels": snapshot, "cached": false})
}

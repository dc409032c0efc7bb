package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hhfoundation/internal/api/jwt"
	"hhfoundation/internal/helpapi"
)

func GetMemberFromToken(token string) (memberId uint, slug string, role string, err error) {
	memberId, slug, role, err = jwt.ValidateToken(token)
	if err != nil {
		return 0, "", "", errors.New("invalid jwt")
	}
	return memberId, slug, role, nil
}

type PaginatedMembers struct {
	Count    int              `json:"count"`
	Next     string           `json:"next"`
	Previous string           `json:"previous"`
	Results  []helpapi.Member `json:"results"`
}

func GetMember(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	memberId := c.GetUint("member_id")

	var member helpapi.Member
	res := app.Db.Where("id = ?", memberId).First(&member)
	if res.RowsAffected == 1 {
		c.JSON(http.StatusOK, gin.H{
			"member":           member,
			"required_upgrade": helpapi.RequiredUpgradeCost(&member),
			"referral_stats":   helpapi.GetReferralStats(app.Db, member),
		})
	} else {
		c.JSON(http.StatusNotFound, nil)
	}
}

// GetReferrals returns the member's direct downline, newest first.
func GetReferrals(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	memberId := c.GetUint("member_id")
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	var downline []helpapi.Member
	app.Db.Where("sponsor_id = ?", memberId).
		Order("created_at DESC").
		Find(&downline)
	c.JSON(http.StatusOK, paginateMembers(downline, page, size))
}

func pageParams(c *gin.Context) (page int, size int, ok bool) {
	var err error
	page, err = strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, 0, false
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	sizeMax := 100
	if helpapi.CurrentAppConfig != nil && helpapi.CurrentAppConfig.Settings.Limits.PageSizeMax > 0 {
		sizeMax = helpapi.CurrentAppConfig.Settings.Limits.PageSizeMax
	}
	if size < 1 || size > sizeMax {
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.New("maximum size exceeded").Error()})
		return 0, 0, false
	}
	return page, size, true
}

func paginateMembers(members []helpapi.Member, page int, size int) (paginated PaginatedMembers) {
	paginated.Results = []helpapi.Member{}
	feedLen := len(members)
	i := (page - 1) * size
	if feedLen <= i {
		return paginated
	}
	if feedLen > page*size {
		paginated.Next = fmt.Sprintf("/members/ref/?page=%d&size=%d", page+1, size)
	}
	if page > 1 {
		paginated.Previous = fmt.Sprintf("/members/ref/?page=%d&size=%d", page-1, size)
	}
	paginated.Count = feedLen
	j := i + size
	if j > feedLen {
		j = feedLen
	}
	paginated.Results = members[i:j]
	return paginated
}

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dchest/uniuri"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"hhfoundation/internal/api/jwt"
	"hhfoundation/internal/helpapi"
)

type signupParams struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required,min=8"`
	FullName   string `json:"full_name" binding:"required"`
	Phone      string `json:"phone"`
	SponsorRef string `json:"sponsor_ref"` // sponsor's member id, optional
}

type loginParams struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func newMemberId() string {
	return "HH" + uniuri.NewLenChars(8, []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789"))
}

// Signup registers a Star-level member. New members start deactivated and
// invisible to the receiver pool until the activation fee clears (an admin
// flips IsActivated), same as the original plan.
func Signup(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	var params signupParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))

	var existing helpapi.Member
	res := app.Db.Where("email = ?", email).First(&existing)
	if res.RowsAffected > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	member := helpapi.Member{
		MemberId:     newMemberId(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     params.FullName,
		Phone:        params.Phone,
		Role:         "member",
		Level:        helpapi.LevelStar,
	}

	tx := app.Db.Begin()
	defer func() {
		tx.Rollback()
	}()
	if params.SponsorRef != "" {
		var sponsor helpapi.Member
		res = tx.Where("member_id = ?", params.SponsorRef).First(&sponsor)
		if res.RowsAffected == 1 {
			member.SponsorId = sponsor.Id
			if err := tx.Model(&helpapi.Member{}).
				Where("id = ?", sponsor.Id).
				Update("referral_count", sponsor.ReferralCount+1).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
	}
	if err := tx.Create(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	msg := fmt.Sprintf("NEW MEMBER %s", helpapi.EscapeMarkdownV2(member.MemberId))
	if err := helpapi.SendTelegramMessage(msg, "signup"); err != nil {
		fmt.Println("[Signup] telegram notify failed:", err.Error())
	}

	token, err := jwt.GenerateJWT(member.Id, member.MemberId, member.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":          token,
		"member_id":      member.MemberId,
		"activation_fee": member.Level.Config().ActivationFee,
	})
}

func Login(c *gin.Context) {
	app := c.MustGet("app").(*helpapi.App)
	var params loginParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))

	var member helpapi.Member
	res := app.Db.Where("email = ?", email).First(&member)
	if res.RowsAffected != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(params.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := jwt.GenerateJWT(member.Id, member.MemberId, member.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "member_id": member.MemberId})
}

package helpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	MessageTargetSync   = "sync"
	MessageTargetNotify = "notify"

	MessageStyleSuccess = "success"
	MessageStyleWarning = "warning"
	MessageStyleError   = "error"
	MessageStyleInfo    = "info"
)

type WsResponseData struct {
	Target        string           `json:"target"` // 'notify' or 'sync'
	Member        MemberData       `json:"member"`
	ReferralStats ReferralStats    `json:"referral_stats"`
	Data          NotificationData `json:"data"`
	Config        AppConfig        `json:"app_config"`
}

type NotificationData struct {
	Id      int    `json:"id"`
	Style   string `json:"style"`
	Type    string `json:"type"` // 'help_assigned', 'payment_confirmed', 'receipt_verified', 'custom'
	Message string `json:"message"`
	HelpId  string `json:"help_id"`
	Amount  int64  `json:"amount"`
}

// SyncMemberStats builds the websocket sync frame for a member.
func SyncMemberStats(db *gorm.DB, member Member) []byte {
	cfg := CurrentAppConfig
	if cfg == nil {
		cfg = DefaultAppConfig
	}
	data := WsResponseData{
		Target:        MessageTargetSync,
		Member:        member.Data(),
		ReferralStats: GetReferralStats(db, member),
	}
	if cfg != nil {
		data.Config = *cfg
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return jsonData
}

// PublishAssignmentEvent pushes a notification frame onto both parties'
// channels and caches it for an hour so offline members still get it on
// reconnect.
func PublishAssignmentEvent(rdb *redis.Client, record *Assignment, eventType string, message string) {
	data := WsResponseData{
		Target: MessageTargetNotify,
		Data: NotificationData{
			Id:      int(time.Now().UnixNano() % 99999),
			Style:   MessageStyleInfo,
			Type:    eventType,
			Message: message,
			HelpId:  record.HelpId,
			Amount:  record.Amount,
		},
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	targets := []uint{record.SenderId}
	if record.ReceiverId != nil {
		targets = append(targets, *record.ReceiverId)
	}
	for _, id := range targets {
		rdb.Publish(context.Background(), fmt.Sprintf("notification_ch@%d", id), jsonData)
		rdb.Set(context.Background(),
			fmt.Sprintf("notification_cache@%d:%d", id, data.Data.Id),
			jsonData, 1*time.Hour)
	}
}

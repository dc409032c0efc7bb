package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"hhfoundation/internal/api"
	"hhfoundation/internal/api/middleware"
	"hhfoundation/internal/helpapi"
)

var App *helpapi.App

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
}

func ApiInit() { // Run Api Server
	App = helpapi.Init()
	router := gin.Default()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	store := ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: redis.NewClient(&redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       1,
		}),
		Rate:  time.Second,
		Limit: uint(GlobalConfig.RateLimitPerSecond),
	})
	mw := ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})
	origins := GlobalConfig.AllowOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://0.0.0.0:3000",
			"http://localhost:3000",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  []string{"Origin", "Access-Control-Allow-Origin", "Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		AllowMethods:  []string{"GET, POST, OPTIONS, PUT, DELETE"},
		MaxAge:        24 * time.Hour,
	}))
	router.Use(func(c *gin.Context) {
		c.Set("app", App)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", mw, wsHandler)
	router.GET("/ws/", mw, wsHandler)
	auth := router.Group("/auth/")
	{
		auth.POST("/signup", mw, api.Signup)
		auth.POST("/signup/", mw, api.Signup)
		auth.POST("/login", mw, api.Login)
		auth.POST("/login/", mw, api.Login)
	}
	members := router.Group("/members/").Use(middleware.Auth())
	{
		members.GET("/me", mw, api.GetMember)
		members.GET("/me/", mw, api.GetMember)
		members.GET("/ref", mw, api.GetReferrals)
		members.GET("/ref/", mw, api.GetReferrals)
	}
	help := router.Group("/help/").Use(middleware.Auth())
	{
		help.POST("/request", mw, api.RequestHelp)
		help.POST("/request/", mw, api.RequestHelp)
		help.POST("/upgrade", mw, api.RequestUpgrade)
		help.POST("/upgrade/", mw, api.RequestUpgrade)
		help.POST("/:helpId/payment", mw, api.ConfirmPayment)
		help.POST("/:helpId/receipt", mw, api.ConfirmReceipt)
		help.GET("/list", mw, api.GetHelpList)
		help.GET("/list/", mw, api.GetHelpList)
	}
	diag := router.Group("/diag/").Use(middleware.Auth())
	{
		diag.GET("/eligibility", mw, api.GetEligibility)
		diag.GET("/eligibility/", mw, api.GetEligibility)
	}
	admin := router.Group("/admin/").Use(middleware.Auth(), middleware.Admin())
	{
		admin.POST("/assign/:helpId/force", mw, api.ForceAssign)
		admin.POST("/members/:memberId/unblock", mw, api.UnblockMember)
		admin.POST("/members/:memberId/activate", mw, api.ActivateMember)
		admin.POST("/unlock/bulk", mw, api.BulkUnlock)
		admin.POST("/reconcile/reassign", mw, api.TriggerReassign)
		admin.POST("/reconcile/expire", mw, api.TriggerExpire)
		admin.GET("/worker/status", mw, api.WorkerStatus)
		admin.POST("/help/:helpId/hide", mw, api.HideHelp)
	}
	fmt.Println("[ HH Foundation backend is up and listening to " + GlobalConfig.Port + " ]")
	if err := router.Run(GlobalConfig.Port); err != nil {
		log.Fatal("Failed to run HH Foundation backend on "+GlobalConfig.Port+": ", err)
	}
}

func wsHandler(c *gin.Context) {
	// Extract token from query
	token := c.DefaultQuery("token", "")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	memberId, _, _, err := api.GetMemberFromToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	app := c.MustGet("app").(*helpapi.App)
	member := helpapi.Member{}
	res := app.Db.Where("id = ?", memberId).First(&member)
	if res.RowsAffected != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	// Upgrade Connection
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to set websocket upgrade: %+v", err)
		return
	}
	defer conn.Close()

	appConfigRaw, _ := app.Rdb.Get(c, "app_config").Result()
	if len(appConfigRaw) > 0 {
		_ = json.Unmarshal([]byte(appConfigRaw), &helpapi.CurrentAppConfig)
	}

	lastPong := time.Now()
	conn.SetPongHandler(func(string) error {
		lastPong = time.Now()
		return nil
	})
	pingPeriod := 3 * time.Second
	timeout := 9 * time.Second
	var mu sync.Mutex // serializes writes to the socket

	if jsonData := helpapi.SyncMemberStats(app.Db, member); jsonData != nil {
		if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			fmt.Println("Socket: Failed to send data:", err)
			return
		}
	}

	// Relay live notifications from the member's channel
	go func() {
		pubsub := app.Rdb.Subscribe(c, fmt.Sprintf("notification_ch@%d", member.Id))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for msg := range ch {
			mu.Lock()
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				log.Println("Socket: Failed to send data:", err)
				mu.Unlock()
				_ = conn.Close()
				return
			}
			mu.Unlock()
		}
	}()

	// Listen for commands via ws
	go func() {
		defer conn.Close()

		for {
			messageType, p, err := conn.ReadMessage()
			if err != nil {
				log.Println(err)
				return
			}
			if messageType != websocket.TextMessage {
				fmt.Println("Socket: Unhandled message type:", messageType)
				continue
			}
			message := string(p)
			var ackMsg struct {
				Type string `json:"type"`
				Id   int    `json:"id"`
			}
			if err := json.Unmarshal([]byte(message), &ackMsg); err == nil {
				if ackMsg.Type == "ack" {
					// Remove the acknowledged message from the cache
					_, err := app.Rdb.Del(context.Background(), fmt.Sprintf("notification_cache@%d:%d", member.Id, ackMsg.Id)).Result()
					if err != nil {
						fmt.Println("failed to delete acknowledged message from cache:", err)
					}
					continue
				}
			}
			if message == "sync" {
				_ = app.Db.Where("id = ?", member.Id).First(&member)
				if jsonData := helpapi.SyncMemberStats(app.Db, member); jsonData != nil {
					mu.Lock()
					if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
						fmt.Println("Socket: Failed to send data:", err)
						mu.Unlock()
						return
					}
					mu.Unlock()
				}
			}
		}
	}()

	for {
		// Replay cached notifications the client has not acknowledged yet
		iter := app.Rdb.Scan(context.Background(), 0, fmt.Sprintf("notification_cache@%d:*", member.Id), 0).Iterator()
		for iter.Next(context.Background()) {
			lastNotification, _ := app.Rdb.Get(context.Background(), iter.Val()).Result()
			if len(lastNotification) > 0 {
				mu.Lock()
				if err := conn.WriteMessage(websocket.TextMessage, []byte(lastNotification)); err != nil {
					log.Println("Socket: Failed to send data:", err)
					mu.Unlock()
					_ = conn.Close()
					return
				}
				mu.Unlock()
			}
		}
		if time.Since(lastPong) > timeout {
			log.Println("Socket: Client did not respond to ping, closing connection")
			return
		}
		mu.Lock()
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			log.Println("Socket: Failed to send ping:", err)
			mu.Unlock()
			return
		}
		mu.Unlock()
		time.Sleep(pingPeriod)
	}
}

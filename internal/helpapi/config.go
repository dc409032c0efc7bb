package helpapi

import (
	"context"
	"encoding/json"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type App struct {
	Rdb *redis.Client
	Db  *gorm.DB
	Aqc *asynq.Client
	Aqi *asynq.Inspector
}

type AppConfig struct {
	Settings AppSettings `json:"settings"`
}

type AppSettings struct {
	Match  MatchSettings `json:"match"`
	Limits SettingLimit  `json:"limits"`
}

type MatchSettings struct {
	// ClaimAttempts bounds how many candidates one selector pass may try
	// before giving up with NO_ELIGIBLE_RECEIVER.
	ClaimAttempts int `json:"claim_attempts"`
	// PaymentWindowHours is the sender's deadline from assignment to payment.
	// Enforced lazily by the reconciler, within one scan interval.
	PaymentWindowHours int `json:"payment_window_hours"`
}

type SettingLimit struct {
	PageSizeMax int `json:"page_size_max"`
}

var (
	DefaultAppConfig *AppConfig
	CurrentAppConfig *AppConfig
)

func Init() *App {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()
	asynqClient := setupAsynqClient()
	asynqInspector := setupAsynqInspector()

	DefaultAppConfig = &AppConfig{
		Settings: AppSettings{
			Match: MatchSettings{
				ClaimAttempts:      25,
				PaymentWindowHours: 24,
			},
			Limits: SettingLimit{
				PageSizeMax: 100,
			},
		},
	}
	CurrentAppConfig = DefaultAppConfig

	app := &App{
		Rdb: redisClient,
		Db:  db,
		Aqc: asynqClient,
		Aqi: asynqInspector,
	}
	isSet := false
	appConfigRaw, _ := app.Rdb.Get(context.Background(), "app_config").Result()
	if len(appConfigRaw) > 0 {
		err := json.Unmarshal([]byte(appConfigRaw), &CurrentAppConfig)
		if err == nil {
			isSet = true
		}
	}
	if !isSet {
		currentConfig, _ := json.Marshal(DefaultAppConfig)
		app.Rdb.Set(context.Background(), "app_config", currentConfig, 0)
	}
	return app
}

// AppRec is the reconciliation worker's container: same DB and redis, plus the
// asynq server the periodic tasks run on.
type AppRec struct {
	Rdb *redis.Client
	Db  *gorm.DB
	Aqs *asynq.Server
}

func InitRec(concurrency int) *AppRec {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()
	asynqServer := setupAsynqServer(concurrency)

	app := &AppRec{
		Rdb: redisClient,
		Db:  db,
		Aqs: asynqServer,
	}
	appConfigRaw, _ := app.Rdb.Get(context.Background(), "app_config").Result()
	if len(appConfigRaw) > 0 {
		_ = json.Unmarshal([]byte(appConfigRaw), &CurrentAppConfig)
	}
	if CurrentAppConfig == nil {
		CurrentAppConfig = DefaultAppConfig
	}
	return app
}

func setupRedis() *redis.Client {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	return redisClient
}

func setupDb() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect to the db")
	}
	err = Migrate(db)
	if err != nil {
		panic("failed to run migrations")
	}
	return db
}

// Migrate runs the schema migrations. Split out so tests can run the same
// schema against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Member{},
		&Assignment{},
		&HelpIdempotency{},
		&AuditEntry{},
	)
}

func setupAsynqClient() *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

func setupAsynqInspector() *asynq.Inspector {
	return asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

func setupAsynqServer(concurrency int) *asynq.Server {
	if concurrency < 1 {
		concurrency = 4
	}
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"reconcile": 1,
			},
		},
	)
}

func loadEnv() {
	env := os.Getenv("APP_ENV")
	if "" == env {
		env = "development"
	}

	godotenv.Load(".env." + env + ".local")

	if "test" != env {
		godotenv.Load(".env.local")
	}
	godotenv.Load(".env." + env)
	godotenv.Load()
}

// ClaimAttempts reads the configured selector budget, falling back to the
// default when the cached config is missing or nonsense.
func ClaimAttempts() int {
	if CurrentAppConfig != nil && CurrentAppConfig.Settings.Match.ClaimAttempts > 0 {
		return CurrentAppConfig.Settings.Match.ClaimAttempts
	}
	return 25
}

// PaymentWindowHours reads the configured sender payment deadline.
func PaymentWindowHours() int {
	if CurrentAppConfig != nil && CurrentAppConfig.Settings.Match.PaymentWindowHours > 0 {
		return CurrentAppConfig.Settings.Match.PaymentWindowHours
	}
	return 24
}

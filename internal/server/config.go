package server

import (
	"encoding/json"
	"os"
)

type Config struct {
	FileLog             string   `json:"fileLog"`
	Port                string   `json:"port"`
	WorkerSpeed         int      `json:"workerSpeed"`
	WorkerQueue         int      `json:"workerQueue"`
	ScanIntervalMinutes int      `json:"scanIntervalMinutes"`
	RateLimitPerSecond  int      `json:"rateLimitPerSecond"`
	AllowOrigins        []string `json:"allowOrigins"`
}

var GlobalConfig Config
var PathFile string

func ConfigLoad() {
	var err error

	if len(os.Args) > 1 {
		PathFile = os.Args[1]
	} else {
		PathFile = "./config.json"
	}

	configFile, err := os.Open(PathFile)
	defer configFile.Close()
	if err != nil {
		panic(err)
	}
	jsonParser := json.NewDecoder(configFile)
	jsonParser.Decode(&GlobalConfig)

	if GlobalConfig.Port == "" {
		GlobalConfig.Port = ":8000"
	}
	if GlobalConfig.WorkerSpeed < 1 {
		GlobalConfig.WorkerSpeed = 4
	}
	if GlobalConfig.WorkerQueue < 1 {
		GlobalConfig.WorkerQueue = 64
	}
	// The scan interval bounds how late the payment window is enforced:
	// a deadline is acted on within one interval of expiring.
	if GlobalConfig.ScanIntervalMinutes < 1 {
		GlobalConfig.ScanIntervalMinutes = 5
	}
	if GlobalConfig.RateLimitPerSecond < 1 {
		GlobalConfig.RateLimitPerSecond = 100
	}

	SetLogger(GlobalConfig.FileLog)
}

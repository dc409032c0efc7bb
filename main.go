package main

import (
	"os"

	"hhfoundation/internal/server"
)

func main() {
	server.ConfigLoad()

	// APP_ROLE=reconciler runs only the queue worker; default runs the API
	// with the reconciler alongside it.
	switch os.Getenv("APP_ROLE") {
	case "reconciler":
		server.RecInit()
	case "api":
		server.ApiInit()
	default:
		go server.RecInit()
		server.ApiInit()
	}
}

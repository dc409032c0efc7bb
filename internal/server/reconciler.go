package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"hhfoundation/internal/helpapi"
)

var AppRec *helpapi.AppRec

// RecInit runs the reconciliation worker: an asynq server consuming the
// reconcile queue plus a scheduler that feeds it the periodic repair tasks.
// Admin endpoints enqueue the same task types for on-demand runs, so manual
// and scheduled passes share one code path and stay idempotent together.
func RecInit() {
	AppRec = helpapi.InitRec(GlobalConfig.WorkerSpeed)

	mux := asynq.NewServeMux()
	mux.HandleFunc(helpapi.TaskReassign, handleReassign)
	mux.HandleFunc(helpapi.TaskExpire, handleExpire)

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		nil,
	)
	interval := fmt.Sprintf("@every %dm", GlobalConfig.ScanIntervalMinutes)
	if _, err := scheduler.Register(interval, asynq.NewTask(helpapi.TaskReassign, nil), asynq.Queue("reconcile")); err != nil {
		log.Fatal("Failed to register reassign schedule: ", err)
	}
	if _, err := scheduler.Register(interval, asynq.NewTask(helpapi.TaskExpire, nil), asynq.Queue("reconcile")); err != nil {
		log.Fatal("Failed to register expire schedule: ", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatal("Failed to run reconcile scheduler: ", err)
		}
	}()

	fmt.Println("[ Reconciliation worker is up, scan interval " + interval + " ]")
	if err := AppRec.Aqs.Run(mux); err != nil {
		log.Fatal("Failed to run reconcile server: ", err)
	}
}

func handleReassign(ctx context.Context, t *asynq.Task) error {
	stats, err := helpapi.ReassignMissingReceivers(AppRec.Db, GlobalConfig.WorkerSpeed)
	if err != nil {
		Logger.Error("reassign pass failed: " + err.Error())
		return err
	}
	Logger.Info(fmt.Sprintf("reassign pass: scanned=%d repaired=%d exhausted=%d",
		stats.Scanned, stats.Repaired, stats.Exhausted))
	return nil
}

func handleExpire(ctx context.Context, t *asynq.Task) error {
	stats, err := helpapi.ExpireOverduePayments(AppRec.Db, time.Now())
	if err != nil {
		Logger.Error("expire pass failed: " + err.Error())
		return err
	}
	Logger.Info(fmt.Sprintf("expire pass: scanned=%d expired=%d", stats.Scanned, stats.Repaired))
	return nil
}

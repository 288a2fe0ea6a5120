package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gateattend/internal/attendance"
	"gateattend/internal/config"
	"gateattend/internal/queue"
	"gateattend/internal/store"
)

// Worker consumes accepted-scan messages, writes the audit log line,
// and keeps per-day slot tallies in Redis for the gate dashboard.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "gateattend:scans")
	}

	repo := attendance.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("audit worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != "scan" {
			continue
		}

		id := string(msg.Body)
		rec, err := repo.GetRecord(ctx, id)
		if err != nil {
			log.Printf("fetch record %s failed: %v", id, err)
			continue
		}

		log.Printf("audit: student %s %s at %s (%s)",
			rec.StudentID, rec.SlotName, rec.OccurredAt.Format("2006-01-02 15:04:05"), rec.GateLocation)

		tallyKey := "gateattend:tally:" + rec.DayBucket.Format("2006-01-02")
		if err := redisClient.Client.HIncrBy(ctx, tallyKey, rec.SlotName, 1).Err(); err != nil {
			log.Printf("tally update failed for %s: %v", id, err)
		}
	}

	log.Println("worker stopped")
}

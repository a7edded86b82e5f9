// Command consumer drains the booking event queues into a log file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/flight-seat-reservation/internal/config"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
)

func main() {
	_ = godotenv.Load()

	log := config.NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	ev := config.LoadEventsConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: ev.RabbitURL, LogPath: ev.LogPath, Log: log}
	log.WithField("log_path", ev.LogPath).Info("booking consumer started")
	if err := c.Run(ctx); err != nil {
		log.WithError(err).Fatal("booking consumer stopped")
	}
	log.Info("booking consumer stopped")
}

package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/config"
	"github.com/iliyamo/flight-seat-reservation/internal/database"
	"github.com/iliyamo/flight-seat-reservation/internal/handler"
	"github.com/iliyamo/flight-seat-reservation/internal/kafka"
	"github.com/iliyamo/flight-seat-reservation/internal/ledger"
	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/payment"
	"github.com/iliyamo/flight-seat-reservation/internal/queue"
	"github.com/iliyamo/flight-seat-reservation/internal/reaper"
	"github.com/iliyamo/flight-seat-reservation/internal/repository"
	"github.com/iliyamo/flight-seat-reservation/internal/router"
	"github.com/iliyamo/flight-seat-reservation/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := config.NewLogger(cfg.Env, cfg.LogLevel)

	db, dialect, err := database.Open(cfg.DBDriver, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.SyncSchema(ctx, db, dialect)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("schema sync failed")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LedgerPath), 0o755); err != nil {
		log.WithError(err).Fatal("cannot create ledger directory")
	}
	events, err := ledger.New(cfg.LedgerPath)
	if err != nil {
		log.WithError(err).Fatal("webhook ledger open failed")
	}
	defer events.Close()

	publisher, closePublisher := newPublisher(config.LoadEventsConfig(), log)

	holds := repository.NewSeatHoldRepo(db, dialect)
	svc := service.NewReservationService(
		holds,
		repository.NewPassengerRepo(db, dialect),
		repository.NewTxManager(db),
		publisher,
		log,
	)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			}).Info("request")
			return nil
		},
	}))

	router.RegisterRoutes(e, db)
	router.RegisterBooking(e,
		handler.NewBookingHandler(svc, log),
		handler.NewCatalogHandler(repository.NewAircraftRepo(db, dialect), log),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	router.RegisterWebhook(e, handler.NewWebhookHandler(payment.NewVerifier(cfg.StripeWebhookSecret), events, svc, log))
	router.RegisterAdmin(e, handler.NewAdminHandler(svc, cfg.HoldTTL, log), cfg.JWTSecret)

	housekeeping := &reaper.Reaper{
		Holds:     svc,
		Ledger:    events,
		HoldTTL:   cfg.HoldTTL,
		Retention: cfg.LedgerRetention,
		Log:       log,
	}
	if err := housekeeping.Start(cfg.ReaperSchedule); err != nil {
		log.WithError(err).Fatal("invalid REAPER_SCHEDULE")
	}

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": string(dialect)}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	housekeeping.Stop(ctx)
	closePublisher()
}

// newPublisher builds the booking event publisher chosen by EVENTS_BROKER
// and a function that releases it.
func newPublisher(ev config.EventsConfig, log *logrus.Logger) (queue.Publisher, func()) {
	switch ev.Broker {
	case config.BrokerKafka:
		p := kafka.NewProducer(ev.KafkaBrokers, ev.KafkaBuffer, log)
		p.Start()
		log.WithField("brokers", ev.KafkaBrokers).Info("publishing booking events to kafka")
		return p, p.Close
	case config.BrokerRabbitMQ:
		p := queue.NewAMQPPublisher(ev.RabbitURL, log)
		log.Info("publishing booking events to rabbitmq")
		return p, func() {
			if err := p.Close(); err != nil {
				log.WithError(err).Warn("amqp close")
			}
		}
	default:
		log.Info("booking events disabled")
		return queue.Nop{}, func() {}
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/cache"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/event"
	eventrepo "github.com/ovaphlow/pitchfork/service-ticketing-go/internal/event/repo"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/gateway"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/otp"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/subscriber"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/ticket"
	ticketrepo "github.com/ovaphlow/pitchfork/service-ticketing-go/internal/ticket/repo"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/pkg/utilities"
)

// imageStore covers both image flows; the gateway client and the S3 store implement it.
type imageStore interface {
	event.ImageUploader
	ticket.QRStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-ticketing-go")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugar); err != nil {
		sugar.Errorw("service stopped with error", "err", err)
		lg.Sync()
		os.Exit(1)
	}
	sugar.Info("goodbye")
}

func run(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	users := userrepo.NewUserRepo(db)
	events := eventrepo.NewEventRepo(db)
	tickets := ticketrepo.NewTicketRepo(db)
	if cfg.EnsureSchema {
		if err := ensureSchema(ctx, db, users, events, tickets); err != nil {
			return err
		}
		sugar.Info("schema ensured")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := cache.Connect(pingCtx, cfg.RedisURL)
	cancel()
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer rdb.Close()

	gw := gateway.NewClient(gateway.Config{BaseURL: cfg.GatewayURL, APIKey: cfg.APIKey, Timeout: cfg.GatewayTimeout})

	var images imageStore = gw
	if cfg.ImageBackend == config.ImageBackendS3 {
		s3store, err := storage.NewS3Store(ctx, storage.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		images = s3store
		sugar.Infow("image backend", "backend", "s3", "bucket", cfg.S3Bucket)
	}

	sinks := []activity.Sink{gw}
	if cfg.AMQPURL != "" {
		amqpSink, err := activity.DialAMQP(cfg.AMQPURL, sugar)
		if err != nil {
			return err
		}
		defer amqpSink.Close()
		sinks = append(sinks, amqpSink)
		sugar.Infow("activity records published", "exchange", activity.ExchangeName)
	}
	dispatcher := activity.NewDispatcher(sugar, cfg.ActivityQueue, cfg.ActivityWorker, sinks...)
	// registered after the sink closers so queued records drain first
	defer dispatcher.Close()

	tokens, err := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	snapshots := cache.NewRedisCache(rdb)
	gate := subscriber.NewGate(users, gw)

	userSvc := user.NewUserService(users, otp.NewRedisStore(rdb), gw, tokens, dispatcher, nil, sugar)
	userSvc.OTPTTL = cfg.OTPTTL
	eventSvc := event.NewEventService(events, images, gate, snapshots, dispatcher, sugar)
	eventSvc.CacheTTL = cfg.CacheTTL
	ticketSvc := ticket.NewTicketService(tickets, events, images, gate, snapshots, dispatcher, sugar)
	ticketSvc.CacheTTL = cfg.CacheTTL

	handler := router.RegisterRoutes(sugar, tokens, router.Handlers{
		User:   user.NewHandler(userSvc, sugar),
		Event:  event.NewHandler(eventSvc, sugar),
		Ticket: ticket.NewHandler(ticketSvc, sugar),
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	sugar.Info("shutting down")

	doneCtx, cancelDone := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDone()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnw("http server shutdown failed", "err", err)
	}
	return nil
}

// ensureSchema creates tables in dependency order: tickets reference users and events.
func ensureSchema(ctx context.Context, db *sqlx.DB, steps ...interface {
	EnsureTable(ctx context.Context) error
}) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	for _, s := range steps {
		if err := s.EnsureTable(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

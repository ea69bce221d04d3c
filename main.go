package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"etterlatte-utbetaling/internal/avstemming/grensesnitt"
	avstemmingrepo "etterlatte-utbetaling/internal/avstemming/infrastructure/postgres"
	avstemminginterfaces "etterlatte-utbetaling/internal/avstemming/interfaces"
	"etterlatte-utbetaling/internal/avstemming/konsistens"
	"etterlatte-utbetaling/internal/config"
	"etterlatte-utbetaling/internal/eventing"
	eventingrepo "etterlatte-utbetaling/internal/eventing/infrastructure/postgres"
	"etterlatte-utbetaling/internal/leader"
	"etterlatte-utbetaling/internal/messaging"
	"etterlatte-utbetaling/internal/messaging/rabbitmq"
	"etterlatte-utbetaling/internal/observability/logging"
	"etterlatte-utbetaling/internal/observability/metrics"
	"etterlatte-utbetaling/internal/oppdrag"
	"etterlatte-utbetaling/internal/scheduler"
	"etterlatte-utbetaling/internal/utbetaling/application"
	utbetalingrepo "etterlatte-utbetaling/internal/utbetaling/infrastructure/postgres"
	utbetalinginterfaces "etterlatte-utbetaling/internal/utbetaling/interfaces"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	sikkerlogg, err := logging.NewSikkerlogg(cfg.SikkerloggPath, cfg.Env)
	if err != nil {
		logger.Fatal("sikkerlogg error", zap.Error(err))
	}
	defer func() { _ = sikkerlogg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}
	metrics.Init(db, logger)

	mq, err := rabbitmq.Dial(cfg.AMQPURL, logger, cfg.Prefetch)
	if err != nil {
		logger.Fatal("rabbitmq error", zap.Error(err))
	}
	defer mq.Close()
	if err := mq.Declare(cfg.VedtakQueue, cfg.OppdragQueue, cfg.KvitteringQueue, cfg.AvstemmingQueue, cfg.StatusQueue); err != nil {
		logger.Fatal("rabbitmq declare error", zap.Error(err))
	}

	registry := eventing.NewRegistry()
	registry.Register(application.UtbetalingStatusEndret{})
	outboxStore := eventingrepo.NewOutboxStore(db)
	dispatcher := eventing.NewDispatcher(eventing.NewQueueSink(mq, cfg.StatusQueue), outboxStore, registry, eventingrepo.NewDLQStore(db))
	publisher := eventing.NewPublisher(outboxStore)

	utbetalinger := utbetalingrepo.NewRepository(db)
	encoder := oppdrag.NewEncoder(oppdrag.WithKodeKomponent(cfg.KodeKomponent), oppdrag.WithEnhet(cfg.Enhet))
	sender, err := utbetalinginterfaces.NewOppdragSender(mq, cfg.OppdragQueue)
	if err != nil {
		logger.Fatal("oppdrag sender error", zap.Error(err))
	}
	service, err := application.NewService(
		utbetalinger,
		encoder,
		sender,
		utbetalinginterfaces.NewOutboxPublisher(publisher),
		application.WithLogger(logger),
		application.WithSikkerlogg(sikkerlogg),
		application.WithResendAfter(cfg.ResendAfter),
	)
	if err != nil {
		logger.Fatal("utbetaling service error", zap.Error(err))
	}
	vedtakConsumer, err := utbetalinginterfaces.NewVedtakConsumer(service, mq, cfg.VedtakQueue, cfg.RequeueBackoff, logger)
	if err != nil {
		logger.Fatal("vedtak consumer error", zap.Error(err))
	}
	kvitteringConsumer, err := utbetalinginterfaces.NewKvitteringConsumer(service, mq, cfg.KvitteringQueue, cfg.RequeueBackoff, logger)
	if err != nil {
		logger.Fatal("kvittering consumer error", zap.Error(err))
	}

	avstemminger := avstemmingrepo.NewRepository(db)
	avstemmingSender, err := avstemminginterfaces.NewMQSender(mq, cfg.AvstemmingQueue)
	if err != nil {
		logger.Fatal("avstemming sender error", zap.Error(err))
	}
	grensesnittService, err := grensesnitt.NewService(
		utbetalinger,
		avstemminger,
		avstemmingSender,
		grensesnitt.NewBuilder(cfg.KodeKomponent, cfg.Avstemming.Grensesnitt.DetaljerPerMelding),
		grensesnitt.SystemClock{},
		logger.Named("grensesnittavstemming"),
	)
	if err != nil {
		logger.Fatal("grensesnittavstemming error", zap.Error(err))
	}
	konsistensService, err := konsistens.NewService(
		utbetalinger,
		avstemminger,
		avstemmingSender,
		konsistens.NewBuilder(cfg.KodeKomponent, cfg.Enhet, cfg.Avstemming.Konsistens.OppdragPerMelding),
		konsistens.SystemClock{},
		logger.Named("konsistensavstemming"),
	)
	if err != nil {
		logger.Fatal("konsistensavstemming error", zap.Error(err))
	}

	var elector leader.Elector = leader.NewStatic(true)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer client.Close()
		redisElector, err := leader.NewRedisElector(client, cfg.LeaderKey, cfg.LeaderTTL, logger)
		if err != nil {
			logger.Fatal("leader elector error", zap.Error(err))
		}
		defer func() {
			resignCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = redisElector.Resign(resignCtx)
		}()
		elector = redisElector
	} else {
		logger.Warn("REDIS_ADDR not set, running as the only leader")
	}

	sched, err := scheduler.New(elector, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("scheduler error", zap.Error(err))
	}
	sakTyper := cfg.Avstemming.Typer()
	jobs := []scheduler.Job{
		{
			Name:      "grensesnittavstemming",
			Spec:      cfg.Avstemming.Grensesnitt.Cron,
			Singleton: true,
			Run: func(ctx context.Context) error {
				return grensesnittService.RunAll(ctx, sakTyper)
			},
		},
		{
			Name:      "konsistensavstemming",
			Spec:      cfg.Avstemming.Konsistens.Cron,
			Singleton: true,
			Run: func(ctx context.Context) error {
				return konsistensService.RunAll(ctx, sakTyper)
			},
		},
		{
			Name: "outbox",
			Spec: cfg.OutboxCron,
			Run: func(ctx context.Context) error {
				_, err := dispatcher.Dispatch(ctx, cfg.OutboxBatch)
				return err
			},
		},
		{
			Name:      "resend",
			Spec:      cfg.ResendCron,
			Singleton: true,
			Run: func(ctx context.Context) error {
				_, err := service.ResendPending(ctx, cfg.ResendBatch)
				return err
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			logger.Fatal("scheduler register error", zap.Error(err))
		}
	}
	sched.Start()
	defer sched.Stop()

	var wg sync.WaitGroup
	consume := func(queue string, handler messaging.Handler) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mq.Consume(ctx, queue, handler); err != nil {
				logger.Error("consumer stopped", zap.String("queue", queue), zap.Error(err))
				stop()
			}
		}()
	}
	consume(cfg.VedtakQueue, vedtakConsumer.Handle)
	consume(cfg.KvitteringQueue, kvitteringConsumer.Handle)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !mq.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("rabbitmq down"))
			return
		}
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	wg.Wait()
}

func loggingMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

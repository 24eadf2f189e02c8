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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clinica/internal/api"
	"clinica/internal/auth"
	"clinica/internal/booking"
	"clinica/internal/config"
	"clinica/internal/database"
	"clinica/internal/events"
	"clinica/internal/files"
	"clinica/internal/mercadopago"
	"clinica/internal/metrics"
	"clinica/internal/models"
	"clinica/internal/notify"
	"clinica/internal/premium"
	"clinica/internal/sheets"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CLINICA_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("set auth.jwt_secret in config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	uploads, err := files.NewStore(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("create upload store error")
	}

	mp := mercadopago.NewClient(cfg.MercadoPago.BaseURL, cfg.MercadoPago.AccessToken)
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		mp.UseRedisCache(rdb, cfg.MercadoPagoCacheTTL())
	}

	var provider premium.StatusProvider
	if cfg.MercadoPago.AccessToken != "" {
		provider = mp
	} else {
		logger.Warn().Msg("mercadopago.access_token not set, premium checks use local status only")
	}
	resolver := premium.NewResolver(db, provider, logger)

	bus := events.NewBus()
	bookingSvc := booking.NewService(db, bus, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backup := database.NewBackupService(cfg.Database.Path, database.BackupOptions{
		Enabled:       cfg.Backup.Enabled,
		StoragePath:   cfg.Backup.Path,
		Interval:      cfg.BackupInterval(),
		RetentionDays: cfg.Backup.RetentionDays,
	}, logger)
	go backup.Start(ctx)

	wireNotifications(ctx, cfg, bus, &logger)
	wireSheetsSync(ctx, cfg, bus, db, &logger)

	server := api.NewServer(api.Options{
		DB:             db,
		Booking:        bookingSvc,
		Premium:        resolver,
		Auth:           auth.NewManager(cfg.Auth.JWTSecret, cfg.TokenTTL()),
		Uploads:        uploads,
		Bus:            bus,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminEmail:     cfg.Auth.AdminEmail,
		AdminSecret:    cfg.Auth.AdminSecret,
		Logger:         logger,
	})

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("api shutdown error")
		}
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("clinica server started")
	if err := server.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func wireNotifications(ctx context.Context, cfg *config.Config, bus *events.Bus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		logger.Info().Msg("telegram notifications disabled")
		return
	}

	notifier, err := notify.New(cfg.Telegram.BotToken, cfg.Telegram.Managers, *logger)
	if err != nil {
		logger.Error().Err(err).Msg("telegram setup failed, notifications disabled")
		return
	}

	bus.Subscribe(events.AppointmentCreated, func(event events.Event) {
		if a, ok := event.Payload.(*models.Appointment); ok {
			notifier.AppointmentBooked(ctx, a)
		}
	})
	bus.Subscribe(events.AppointmentCancelled, func(event events.Event) {
		if a, ok := event.Payload.(*models.Appointment); ok {
			notifier.AppointmentCancelled(ctx, a)
		}
	})
}

func wireSheetsSync(ctx context.Context, cfg *config.Config, bus *events.Bus, db *database.DB, logger *zerolog.Logger) {
	if !cfg.GoogleSheets.Enabled {
		return
	}

	credentials, err := os.ReadFile(cfg.GoogleSheets.CredentialsFile)
	if err != nil {
		logger.Error().Err(err).Msg("read sheets credentials failed, sync disabled")
		return
	}
	svc, err := sheets.NewSheetsService(ctx, credentials, cfg.GoogleSheets.SpreadsheetID, *logger)
	if err != nil {
		logger.Error().Err(err).Msg("sheets setup failed, sync disabled")
		return
	}

	sync := func(events.Event) {
		from := time.Now().AddDate(0, -1, 0).Format("2006-01-02")
		to := time.Now().AddDate(0, 3, 0).Format("2006-01-02")
		appointments, err := db.ListAppointmentsByRange(ctx, from, to)
		if err != nil {
			logger.Error().Err(err).Msg("load appointments for sheet sync failed")
			return
		}
		if err := svc.SyncAppointments(ctx, appointments); err != nil {
			logger.Error().Err(err).Msg("sheet sync failed")
		}
	}
	bus.Subscribe(events.AppointmentCreated, sync)
	bus.Subscribe(events.AppointmentCancelled, sync)
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

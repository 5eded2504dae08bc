// Command server wires the scan engine together and runs the HTTP API.
// Business logic lives in the internal service packages; main only builds the
// dependency graph and owns the process lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	attservice "gatepass/internal/attendance/service"
	attstore "gatepass/internal/attendance/store"
	credservice "gatepass/internal/credential/service"
	credstore "gatepass/internal/credential/store"
	"gatepass/internal/directory"
	"gatepass/internal/jwtauth"
	operatorservice "gatepass/internal/operator/service"
	"gatepass/internal/platform/config"
	"gatepass/internal/platform/httpserver"
	"gatepass/internal/platform/logger"
	"gatepass/internal/platform/metrics"
	"gatepass/internal/platform/postgres"
	platformredis "gatepass/internal/platform/redis"
	scanservice "gatepass/internal/scan/service"
	flagservice "gatepass/internal/securityflag/service"
	flagstore "gatepass/internal/securityflag/store"
	httpapi "gatepass/internal/transport/http"
	visitservice "gatepass/internal/visit/service"
	visitstore "gatepass/internal/visit/store"
	"gatepass/pkg/audit"
	auditkafka "gatepass/pkg/audit/kafka"
	auditmemory "gatepass/pkg/audit/store/memory"
	auditpostgres "gatepass/pkg/audit/store/postgres"
	auditworker "gatepass/pkg/audit/worker"
	"gatepass/pkg/notify"
	"gatepass/pkg/qrimage"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		credentials credstore.Store
		visits      visitstore.Store
		attendance  attstore.Store
		flags       flagstore.Store
		dir         directory.Store
		auditLog    audit.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		credentials = credstore.NewPostgres(db)
		visits = visitstore.NewPostgres(db)
		attendance = attstore.NewPostgres(db)
		flags = flagstore.NewPostgres(db)
		dir = directory.NewPostgres(db)
		auditLog = auditpostgres.New(db)
		log.Info("storage ready", "backend", "postgres")
	} else {
		memCreds := credstore.NewMemory()
		credentials = memCreds
		visits = visitstore.NewMemory()
		attendance = attstore.NewMemory()
		flags = flagstore.NewMemory(memCreds)
		dir = directory.NewMemory()
		auditLog = auditmemory.New()
		log.Warn("storage ready", "backend", "memory")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		credentials = credstore.NewCached(credentials, redisClient)
		log.Info("credential cache enabled")
	}

	renderer, err := qrimage.NewPNGRenderer(cfg.QRImageDir)
	if err != nil {
		return fmt.Errorf("prepare image dir: %w", err)
	}

	var notifier notify.Notifier
	if cfg.SMTP.Host != "" {
		notifier = notify.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Sender, cfg.SMTP.Password, log)
	} else {
		notifier = notify.NewLog(log)
	}

	verifier, err := credservice.NewVerifier(credentials, dir, credservice.WithVerifierLogger(log))
	if err != nil {
		return err
	}
	visitSvc, err := visitservice.New(visits, dir, visitservice.WithLogger(log))
	if err != nil {
		return err
	}
	issuer, err := credservice.NewIssuer(credentials, dir, visitSvc, renderer,
		credservice.WithIssuerLogger(log),
		credservice.WithNotifier(notifier),
		credservice.WithVisitorTTL(cfg.VisitorCredentialTTL),
	)
	if err != nil {
		return err
	}
	facilityZone := time.Local
	if cfg.FacilityTimezone != "" {
		facilityZone, err = time.LoadLocation(cfg.FacilityTimezone)
		if err != nil {
			return fmt.Errorf("load facility timezone %q: %w", cfg.FacilityTimezone, err)
		}
	}
	attSvc, err := attservice.New(attendance, credentials, dir,
		attservice.WithLogger(log),
		attservice.WithLatePolicy(cfg.LateCutoff, cfg.LateThreshold, cfg.LateWindowDays),
		attservice.WithCutoffZone(facilityZone),
	)
	if err != nil {
		return err
	}
	flagSvc, err := flagservice.New(flags, credentials, dir, flagservice.WithLogger(log))
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	scanOpts := []scanservice.Option{
		scanservice.WithLogger(log),
		scanservice.WithMetrics(m),
		scanservice.WithNotifier(notifier, cfg.SMTP.AdminTo),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, perr := auditkafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log)
		if perr != nil {
			return fmt.Errorf("connect kafka: %w", perr)
		}
		defer publisher.Close()
		mirror := make(chan audit.Event, 256)
		scanOpts = append(scanOpts, scanservice.WithMirror(mirror))
		worker := auditworker.New(publisher, mirror, log)
		g.Go(func() error {
			if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("audit mirror enabled", "topic", cfg.KafkaAuditTopic)
	}
	scanSvc, err := scanservice.New(verifier, flagSvc, visitSvc, attSvc, attendance, auditLog, scanOpts...)
	if err != nil {
		return err
	}

	tokens := jwtauth.New(cfg.JWTSigningKey, cfg.TokenTTL)
	operatorSvc, err := operatorservice.New(dir, tokens,
		operatorservice.WithLogger(log),
		operatorservice.WithAudit(auditLog),
	)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Services{
		Verifier:       verifier,
		Issuer:         issuer,
		Renderer:       renderer,
		Visits:         visitSvc,
		Attendance:     attSvc,
		Flags:          flagSvc,
		Scans:          scanSvc,
		Operators:      operatorSvc,
		Directory:      dir,
		AuditLog:       auditLog,
		Tokens:         tokens,
		Metrics:        m,
		Logger:         log,
		StorageTimeout: cfg.StorageTimeout,
	})
	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// @title School Events API
// @version 1.0
// @description Event participation requests, capacity and rosters for schools.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schoolevents/config"
	_ "schoolevents/docs"
	"schoolevents/internal/adapters/auth"
	"schoolevents/internal/adapters/email"
	delivery "schoolevents/internal/delivery/http"
	"schoolevents/internal/delivery/http/controllers"
	"schoolevents/internal/domain"
	"schoolevents/internal/repository/postgres"
	"schoolevents/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			logger.Error("issue token", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := postgres.Open(openCtx, cfg.DBUrl)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, renderer, logger)

	eventRepo := postgres.NewEventRepository(db)
	studentRepo := postgres.NewStudentRepository(db)
	ledger := postgres.NewParticipationRequestRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	txManager := postgres.NewTxManager(db)

	eventService := services.NewEventService(eventRepo, ledger, activityRepo, txManager, cfg.RequestTimeout)
	participationService := services.NewParticipationService(eventRepo, studentRepo, ledger, txManager, emailService, logger, cfg.RequestTimeout)
	hubService := services.NewHubService(eventRepo, studentRepo, ledger, cfg.RequestTimeout)

	router := delivery.NewRouter(delivery.RouterDeps{
		Logger:         logger,
		Verifier:       auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		DB:             db,
	},
		controllers.NewEventController(logger, eventService),
		controllers.NewParticipationController(logger, participationService),
		controllers.NewHubController(logger, hubService),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// issueToken prints a development token: server token -sub <id> -role <role> [-school <id>] [-ttl 24h].
func issueToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	sub := fs.String("sub", "", "user id (token subject)")
	role := fs.String("role", string(domain.RoleStudent), "student, teacher, admin or super_admin")
	school := fs.String("school", "", "school id")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	token, err := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer).Issue(domain.Principal{
		UserID:   *sub,
		Role:     domain.Role(*role),
		SchoolID: *school,
	}, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

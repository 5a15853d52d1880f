package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/governance-console/internal/application"
	"github.com/example/governance-console/internal/config"
	httptransport "github.com/example/governance-console/internal/http"
	"github.com/example/governance-console/internal/mail"
	"github.com/example/governance-console/internal/notify"
	"github.com/example/governance-console/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(cfg.DatabaseDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := uuid.NewString
	now := time.Now

	accountRepo := newAccountRepositoryAdapter(sqlite.NewUserRepository(pool))
	authSessionRepo := newAuthSessionRepositoryAdapter(sqlite.NewAuthSessionRepository(pool))
	resetTokenRepo := newResetTokenRepositoryAdapter(sqlite.NewResetTokenRepository(pool))
	memberRepo := newMemberRepositoryAdapter(sqlite.NewMemberRepository(pool))
	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))
	minutesRepo := newMinutesRepositoryAdapter(sqlite.NewActaRepository(pool), idGenerator)
	mailboxRepo := newMailboxRepositoryAdapter(sqlite.NewMailboxRepository(pool))

	hub := notify.NewHub(logger)
	defer hub.Close()

	authService := application.NewAuthServiceWithLogger(accountRepo, authSessionRepo, resetTokenRepo, tokenGenerator, now, cfg.SessionTTL, logger)
	sessionService := application.NewSessionServiceWithLogger(sessionRepo, memberRepo, idGenerator, now, logger)
	minutesService := application.NewMinutesServiceWithLogger(minutesRepo, sessionRepo, idGenerator, now, logger)
	memberService := application.NewMemberService(memberRepo, logger)
	mailboxService := application.NewMailboxService(mailboxRepo, newHubPusherAdapter(hub), idGenerator, now, logger)

	if cfg.BoardRosterPath != "" {
		roster, err := loadBoardRoster(cfg.BoardRosterPath)
		if err != nil {
			logger.Error("failed to load board roster", "path", cfg.BoardRosterPath, "error", err)
			os.Exit(1)
		}
		if err := memberService.SeedRoster(context.Background(), roster); err != nil {
			logger.Error("failed to seed board roster", "error", err)
			os.Exit(1)
		}
	}

	mailer := buildMailer(cfg, logger)
	if mailer == nil {
		logger.Warn("no mail transport configured, convocation notices will not be sent")
	}
	dispatcher := notify.NewDispatcher(mailer, logger)

	scheduler := notify.NewScheduler(logger)
	defer scheduler.Close()

	draftHandler := httptransport.NewDraftHandler(logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:      httptransport.NewAuthHandler(authService, mailer, cfg.BaseURL, logger),
		Sessions:  httptransport.NewSessionHandler(sessionService, minutesService, memberService, dispatcher, scheduler, draftHandler, mailboxService, logger),
		Drafts:    draftHandler,
		Actas:     httptransport.NewActaHandler(minutesService, sessionService, memberService, dispatcher, mailboxService, logger),
		Members:   httptransport.NewMemberHandler(memberService, logger),
		Mailbox:   httptransport.NewMailboxHandler(mailboxService, hub, logger),
		Validator: authService,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("console API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type rosterEntry struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	LastName string `json:"apellido"`
	Email    string `json:"correo"`
}

// loadBoardRoster reads the roster seed file, a JSON array of member entries.
func loadBoardRoster(path string) ([]application.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []rosterEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	members := make([]application.Member, 0, len(entries))
	for _, entry := range entries {
		members = append(members, application.Member{
			ID:       entry.ID,
			Name:     entry.Name,
			LastName: entry.LastName,
			Email:    entry.Email,
		})
	}
	return members, nil
}

// buildMailer picks the outbound transport: the HTTP relay wins when both are
// configured; nil disables delivery entirely.
func buildMailer(cfg config.Config, logger *slog.Logger) notify.Mailer {
	switch {
	case cfg.UseRelay():
		mailer, err := mail.NewRelayMailer(cfg.MailRelayURL, nil, logger)
		if err != nil {
			logger.Error("failed to configure mail relay", "error", err)
			return nil
		}
		return mailer
	case cfg.UseSMTP():
		mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, logger)
		if err != nil {
			logger.Error("failed to configure SMTP delivery", "error", err)
			return nil
		}
		return mailer
	default:
		return nil
	}
}

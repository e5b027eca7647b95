package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	discordtransport "github.com/bloxxvault/ticket-bot/internal/api/discord"
	httptransport "github.com/bloxxvault/ticket-bot/internal/api/http"
	"github.com/bloxxvault/ticket-bot/internal/api/http/handlers"
	"github.com/bloxxvault/ticket-bot/internal/auth"
	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/observability"
	"github.com/bloxxvault/ticket-bot/internal/persistence"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/repository"
	"github.com/bloxxvault/ticket-bot/internal/service"
	"github.com/bloxxvault/ticket-bot/internal/worker"
)

const opsTokenTTL = 12 * time.Hour

func main() {
	mintSubject := flag.String("mint-ops-token", "", "print an ops API token for the given subject and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.Ops.JWTSecret, opsTokenTTL)
	if *mintSubject != "" {
		token, expires, err := tokens.GenerateToken(*mintSubject, auth.OpsRole)
		if err != nil {
			log.Fatalf("failed to mint token: %v", err)
		}
		fmt.Printf("%s\n# expires %s\n", token, expires.Format(time.RFC3339))
		return
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	client := platform.NewDiscordClient(session)

	dispatcher := events.NewInMemoryDispatcher(logger)
	tickets := repository.NewTicketRegistry()

	auditDeps := service.AuditDependencies{
		Dispatcher:   dispatcher,
		Client:       client,
		LogChannelID: cfg.Tickets.LogChannelID,
		Metrics:      metrics,
		Logger:       logger.Named("audit"),
	}
	var auditArchive repository.AuditEventRepository
	if pg.Enabled() {
		auditArchive = repository.NewAuditEventRepository(pg.PoolHandle())
		auditDeps.Archive = auditArchive
	}
	if redis != nil {
		auditDeps.Stream = redis
	}
	worker.StartAuditWorker(service.NewAuditService(auditDeps))

	deps := service.TicketDependencies{
		Client:     client,
		Config:     cfg.Tickets,
		Registry:   tickets,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger.Named("tickets"),
	}
	ticketService := service.NewTicketService(deps)
	transcripts := service.NewTranscriptService(deps)
	lifecycle := service.NewLifecycleService(deps, transcripts)
	intake := service.NewIntakeService(deps)

	router := discordtransport.NewRouter(discordtransport.RouterDependencies{
		Client:    client,
		Config:    cfg.Tickets,
		Tickets:   ticketService,
		Lifecycle: lifecycle,
		Intake:    intake,
		Logger:    logger.Named("discord"),
	})
	session.AddHandler(router.OnInteractionCreate)
	session.AddHandler(router.OnMessageCreate)
	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info("ticket bot logged in", zap.String("user", r.User.String()), zap.Int("guilds", len(r.Guilds)))
		discordtransport.RegisterCommands(ctx, s, cfg.Discord.GuildID, logger)
	})

	if err := session.Open(); err != nil {
		logger.Fatal("failed to open discord gateway", zap.Error(err))
	}
	defer session.Close()

	readiness := map[string]handlers.Pinger{"gateway": gatewayPinger{session}}
	if pg.Enabled() {
		readiness["postgres"] = pg
	}
	if redis != nil {
		readiness["redis"] = redis
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger.Named("http"), metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Tickets:        handlers.NewTicketsHandler(ticketService, auditArchive),
		Gatherer:       registry,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

type gatewayPinger struct {
	session *discordgo.Session
}

func (g gatewayPinger) Ping(context.Context) error {
	if !g.session.DataReady {
		return errors.New("gateway not ready")
	}
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

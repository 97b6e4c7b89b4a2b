package main

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/handlers"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/transport"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanup (database close, index flush) always executes before
// the process reports its exit code.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Core runtime
	monitoring := observability.NewMonitoringManager(logger)
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, monitoring, logger)
	presence := runtime.NewPresence(broadcaster, logger)
	voice := runtime.NewVoiceRegistry()
	dispatcher := runtime.NewDispatcher(monitoring, logger)

	if logger.Enabled(ctx, slog.LevelDebug) {
		debugPort := 8081
		endpoint := "/inspect"
		logger.Info("Debug inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", debugPort, endpoint))
		internal.StartDebugServer(db, debugPort, endpoint, internal.DefaultMapper, func() map[string]any {
			stats := monitoring.Snapshot()
			return map[string]any{
				"connections": stats.ActiveConnections,
				"events":      stats.EventsRouted,
				"deliveries":  stats.Deliveries,
			}
		})
	}

	// 4. Repositories
	userRepository := repositories.NewUserRepository(db)
	groupRepository := repositories.NewGroupRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	mediaRepository := repositories.NewMediaRepository(db, config.MediaDir)
	notificationRepository := repositories.NewNotificationRepository(db)
	directory := repositories.NewDirectory(blugeWriter, logger)
	avatarStore := repositories.NewAvatarStore(config.AvatarDir)

	// 5. Moderation
	censored, err := moderation.LoadCensoredWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading censored words failed: %w", err)
	}
	moderator, err := moderation.NewModerator(censored.Words, charReplacement, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("building moderator failed: %w", err)
	}
	logger.Info("Moderation ready", "words", len(censored.Words), "languages", censored.Languages)

	// 6. Handlers & dispatcher table
	tokens := auth.NewTokenIssuer(config.SecretKey, config.AuthTokenDuration)
	indexJobs := make(chan domain.User, config.IndexBufferSize)

	notificationHandler := handlers.NewNotificationHandler(notificationRepository, registry, broadcaster, logger)
	voiceHandler := handlers.NewVoiceHandler(voice, userRepository, registry, broadcaster, logger)
	handlerSet := &handlers.Set{
		Auth:          handlers.NewAuthHandler(userRepository, avatarStore, registry, presence, tokens, indexJobs, logger),
		Group:         handlers.NewGroupHandler(groupRepository, userRepository, notificationHandler, registry, broadcaster, logger),
		Message:       handlers.NewMessageHandler(messageRepository, groupRepository, moderator, registry, broadcaster, config.MaxContentLength, logger),
		Voice:         voiceHandler,
		Admin:         handlers.NewAdminHandler(groupRepository, registry, broadcaster, logger),
		Search:        handlers.NewSearchHandler(directory, userRepository, registry, logger),
		Media:         handlers.NewMediaHandler(mediaRepository, registry, config.MaxMediaSize, logger),
		Profile:       handlers.NewProfileHandler(userRepository, groupRepository, avatarStore, registry, broadcaster, indexJobs, logger),
		Notifications: notificationHandler,
		Health:        handlers.NewHealthHandler(monitoring, registry, logger),
	}
	handlerSet.RegisterAll(dispatcher)

	// 7. Transport
	factory := func(conn contract.Conn) contract.Worker {
		session := runtime.NewSession(conn, dispatcher, registry, presence, monitoring, logger)
		session.OnClose(voiceHandler.HandleDisconnect)
		return session
	}
	server := transport.NewServer(transport.ServerConfig{
		Host:         config.Host,
		Port:         config.Port,
		WriteTimeout: config.WriteTimeout,
		PingInterval: config.PingInterval,
		PongTimeout:  config.PongTimeout,
		ReadLimit:    config.ReadLimit,
	}, factory, logger)

	// 8. Supervision
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(
		server,
		workers.NewIndexerWorker(directory, indexJobs, logger),
		workers.NewBadgerGCWorker(db, config.GCInterval, logger),
		workers.NewStatsWorker(monitoring, config.MetricInterval, logger),
	)

	// 9. Signals & lifecycle
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting relay", "host", config.Host, "port", config.Port)
	supervisor.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

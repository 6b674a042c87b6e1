package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"dayflow"
	"dayflow/api"
	"dayflow/assistant"
	"dayflow/auth"
	"dayflow/common"
	"dayflow/domain"
	"dayflow/fflag"
	"dayflow/gateway"
	"dayflow/intelligence"
	"dayflow/session"
	"dayflow/skill"
	"dayflow/telemetry"
)

func NewStartCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start the Dayflow gateway client and its operational API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the dayflow config file",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "User id to sign in on startup",
			},
			&cli.StringFlag{
				Name:  "tier",
				Usage: "Subscription tier of the startup user (free, pro, team)",
				Value: "pro",
			},
			&cli.StringFlag{
				Name:  "role",
				Usage: "Role of the startup user (member, admin, owner)",
			},
			&cli.StringFlag{
				Name:  "org",
				Usage: "Organization id of the startup user",
			},
		},
		Action: handleStartCommand,
	}
}

func handleStartCommand(cliCtx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = common.GetDefaultConfigPath()
	}
	config, err := common.GetConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	shutdownTracer, err := telemetry.InitTracer("dayflow")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	service, err := dayflow.GetService(config.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage service: %w", err)
	}
	if err := service.CheckConnection(cliCtx); err != nil {
		log.Warn().Err(err).Msg("Storage connection check failed; continuing degraded")
	}

	conn := gateway.NewConnectionManager(gateway.Config{
		Address:              config.Gateway.Address,
		ConnectTimeout:       config.Gateway.ConnectTimeout(),
		ReconnectDelay:       config.Gateway.ReconnectDelay(),
		MaxReconnectAttempts: config.Gateway.MaxReconnectAttempts,
	})
	if !conn.Connect(cliCtx) {
		log.Warn().Msg("Gateway connection failed; operating in degraded mode until it reconnects")
	}

	registry := skill.NewRegistry()
	skill.RegisterDefaults(registry)
	executor := skill.NewExecutor(registry, conn, config.Gateway.CallTimeout())

	sessions := session.NewManager(service, conn, config.Session.IdleTimeout(), config.Session.SweepInterval())

	flagsPath := config.FlagsPath
	if flagsPath == "" {
		flagsPath = common.GetDefaultFlagsPath()
	}
	flags, err := fflag.NewFFlag(flagsPath)
	if err != nil {
		log.Warn().Err(err).Msg("Feature flag client unavailable; gateway flag defaults to enabled")
	}

	bridge := auth.NewBridge(sessions, executor, flags, service)

	engine := intelligence.NewEngine(service, bridge, sessions, config.Intelligence)
	engine.Start()

	facade := assistant.NewAssistant(bridge, engine, conn)

	if userId := cmd.String("user"); userId != "" {
		account, err := startupAccount(userId, cmd.String("tier"), cmd.String("role"), cmd.String("org"))
		if err != nil {
			return err
		}
		bridge.HandleSignIn(cliCtx, account)
		log.Info().Str("user_id", userId).Msg("Signed in startup user")
	}

	ctrl := api.NewController(service, registry, conn, engine, facade, bridge)
	server, err := api.RunServer(ctrl)
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	log.Info().Int("port", common.GetServerPort()).Msg("Dayflow API listening")

	// Wait for interrupt signal to gracefully shut everything down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful API server shutdown failed")
	}
	engine.Stop()
	bridge.HandleSignOut(shutdownCtx)
	sessions.Stop(shutdownCtx)
	conn.Disconnect()
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown failed")
	}

	log.Info().Msg("Shut down gracefully")
	return nil
}

func startupAccount(userId, tier, role, org string) (domain.UserAccount, error) {
	parsedTier, err := domain.StringToSubscriptionTier(tier)
	if err != nil {
		return domain.UserAccount{}, err
	}
	parsedRole, err := domain.StringToRole(role)
	if err != nil {
		return domain.UserAccount{}, err
	}
	return domain.UserAccount{
		Id:             userId,
		OrganizationId: org,
		Role:           parsedRole,
		Tier:           parsedTier,
	}, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "netwin-backend/config"
	"netwin-backend/handlers"
	"netwin-backend/middleware"
	"netwin-backend/models"
	"netwin-backend/services"
	"netwin-backend/utils"

	"github.com/spf13/cobra"
)

var (
	autoMigrate bool
	tokenUser   string
	tokenEmail  string
	tokenRole   string
)

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Run database migrations before serving")
	issueTokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id (token subject)")
	issueTokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	issueTokenCmd.Flags().StringVar(&tokenRole, "role", models.RoleUser, "Role claim (user or admin)")
	_ = issueTokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepStatusCmd)
	rootCmd.AddCommand(issueTokenCmd)
}

func loadConfig() (*appconfig.Config, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, err
	}
	utils.InitLogger(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the status sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := utils.OpenDatabase(cfg.Database.URL)
		if err != nil {
			return err
		}
		if autoMigrate {
			if err := utils.Migrate(db); err != nil {
				return err
			}
		}

		store, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			return fmt.Errorf("failed to initialize R2 client: %w", err)
		}

		rdb, err := utils.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		var events services.EventPublisher = services.NoopPublisher{}
		if cfg.NATS.URL != "" {
			pub, err := services.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
			if err != nil {
				return err
			}
			defer pub.Close()
			events = pub
		} else {
			utils.Log.Warn("⚠️  NATS_URL not set, domain events are not published")
		}

		var mailer services.Mailer = services.LogMailer{}
		if cfg.Mailer.URL != "" {
			mailer = services.NewMailRelayClient(cfg.Mailer.URL, cfg.Mailer.Token, cfg.Mailer.From)
		} else {
			utils.Log.Warn("⚠️  MAILER_URL not set, OTP codes are written to the log")
		}

		notifier := services.NewNotificationService(db)
		users := services.NewUserService(db)
		sweeper := services.NewStatusSweeper(db, events)
		svc := handlers.Services{
			Users:         users,
			Tournaments:   services.NewTournamentService(db, store, users, notifier, events),
			Wallet:        services.NewWalletService(db, store, notifier, events),
			KYC:           services.NewKYCService(db, store, notifier, events),
			Notifications: notifier,
			Support:       services.NewSupportService(db, notifier),
			Stats:         services.NewStatsService(db),
			OTP:           services.NewOTPService(services.NewOTPStore(rdb), mailer, users),
			Sweeper:       sweeper,
		}

		if err := sweeper.Start(cfg.Scheduler.StatusSweepInterval); err != nil {
			return fmt.Errorf("failed to start status sweeper: %w", err)
		}
		defer sweeper.Stop()

		app := handlers.NewApp(cfg.Server, middleware.NewTokenIssuer(cfg.Auth), svc)

		errCh := make(chan error, 1)
		go func() {
			errCh <- app.Listen(":" + cfg.Server.Port)
		}()
		utils.Log.Infow("✅ Server running", "port", cfg.Server.Port)

		select {
		case <-ctx.Done():
			utils.Log.Info("Shutting down server...")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}
		return app.ShutdownWithTimeout(10 * time.Second)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		db, err := utils.OpenDatabase(cfg.Database.URL)
		if err != nil {
			return err
		}
		if err := utils.Migrate(db); err != nil {
			return err
		}
		utils.Log.Info("✅ migrations applied")
		return nil
	},
}

var sweepStatusCmd = &cobra.Command{
	Use:   "sweep-status",
	Short: "Persist due tournament status transitions once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		db, err := utils.OpenDatabase(cfg.Database.URL)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		changed, err := services.NewStatusSweeper(db, services.NoopPublisher{}).Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("updated %d tournament(s)\n", changed)
		return nil
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Sign an access token for a user (ops and local testing)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
		if tokenRole != models.RoleUser && tokenRole != models.RoleAdmin {
			return fmt.Errorf("unknown role %q", tokenRole)
		}
		roles := []string{models.RoleUser}
		if tokenRole == models.RoleAdmin {
			roles = append(roles, models.RoleAdmin)
		}
		token, err := middleware.NewTokenIssuer(cfg.Auth).Issue(tokenUser, tokenEmail, roles)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ismailsoloyt12-stack/zetsuserv/config"
	"github.com/ismailsoloyt12-stack/zetsuserv/logger"
	"github.com/ismailsoloyt12-stack/zetsuserv/models"
	"github.com/ismailsoloyt12-stack/zetsuserv/services"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zetsuserv",
		Short: "ZetsuServ service request and order tracking API",
		Long:  "ZetsuServ takes in web development service requests, runs them through a single-slot work queue, and lets clients follow order progress with a tracking code and access key.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInitDBCmd())
	cmd.AddCommand(newCreateAdminCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zetsuserv %s (commit: %s)\n", Version, Commit)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Infof("starting ZetsuServ API server...")

	if err := config.ConnectDatabase(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(config.GetDB()); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Infof("database migration completed")

	services.InitMailer(cfg)
	if _, err := services.InitS3Service(); err != nil {
		logger.Warnf("file storage disabled: %v", err)
	}

	scheduler := cron.New()
	verification := services.NewVerificationService(config.GetDB())
	if _, err := scheduler.AddFunc("@every 10m", func() {
		if err := verification.CleanupExpired(); err != nil {
			logger.Errorf("verification cleanup failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule verification cleanup: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := setupRouter()

	addr := ":" + cfg.Port
	logger.Infof("server listening on %s", addr)
	return router.Run(addr)
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.ConnectDatabase(); err != nil {
				return err
			}
			if err := migrate(config.GetDB()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date.")
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var (
		username string
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin console account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.ConnectDatabase(); err != nil {
				return err
			}
			db := config.GetDB()
			if err := migrate(db); err != nil {
				return err
			}

			var existing models.AdminUser
			if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
				return fmt.Errorf("admin user %q already exists", username)
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			admin := models.AdminUser{
				Username:     username,
				Email:        email,
				PasswordHash: string(hash),
			}
			if err := db.Create(&admin).Error; err != nil {
				return fmt.Errorf("failed to create admin user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Admin user %q created.\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "admin email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

// migrate creates or updates all application tables
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AdminUser{},
		&models.Order{},
		&models.ProgressStep{},
		&models.Message{},
		&models.Notification{},
	)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"sympep-tracker/internal/auth"
	"sympep-tracker/internal/config"
	"sympep-tracker/internal/database"
	"sympep-tracker/internal/jobs"
	"sympep-tracker/internal/registry"
	"sympep-tracker/internal/repository"
	"sympep-tracker/internal/services"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sympepctl",
		Short:         "Administration tool for the SymPEP tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(upCmd())
	cmd.AddCommand(tokenCmd())
	cmd.AddCommand(registryCmd())
	cmd.AddCommand(importCmd())

	return cmd
}

func upCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations to PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("SQL migrations target postgres; %s databases are migrated on startup", cfg.Database.Driver)
			}

			db, err := sql.Open("postgres", cfg.GetDSN())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}

			applied, err := database.ApplySQLMigrations(cmd.Context(), db, dir)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("Database is up to date")
				return nil
			}
			fmt.Printf("Applied %d migrations\n", len(applied))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "migrations", "directory holding .sql migrations")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		editor bool
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token [handle]",
		Short: "Mint an API token for a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			auth.InitJWT(cfg.App.JWTSecret)

			token, err := auth.GenerateToken(args[0], editor, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().BoolVar(&editor, "editor", false, "grant editor rights")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the published proposal index",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "publish",
		Short: "Publish pending registry updates now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, repo, err := connect()
			if err != nil {
				return err
			}

			publisher := jobs.NewRegistryPublisher(
				repo,
				registry.NewFileWriter(cfg.Registry.Path),
				cfg.Registry.Interval,
				cfg.Registry.BatchSize,
			)

			published, err := publisher.PublishOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Acknowledged %d registry updates (%s)\n", published, cfg.Registry.Path)
			return nil
		},
	})

	return cmd
}

func importCmd() *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Create a Draft proposal from a template document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			_, repo, err := connect()
			if err != nil {
				return err
			}

			proposal, err := services.NewProposalService(repo).Import(cmd.Context(), doc, actor)
			if err != nil {
				return err
			}
			fmt.Printf("Created draft %s: %s\n", proposal.Handle, proposal.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "handle recorded on imported discussion links")

	return cmd
}

// connect opens the configured database the same way the server does
func connect() (*config.Config, *repository.Repository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := database.Connect(cfg); err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(); err != nil {
		return nil, nil, err
	}
	return cfg, repository.NewRepository(database.GetDB()), nil
}


package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/observability"
	"github.com/spec-kit/opportunity-service/internal/persistence"
	"github.com/spec-kit/opportunity-service/internal/repository"
	"github.com/spec-kit/opportunity-service/internal/service"
)

type runOptions struct {
	Migrate bool
	Timeout time.Duration
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [--migrate] [--timeout 30s]",
		Short: "Ensure role tokens and the bootstrap administrator exist in PostgreSQL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required")
			}

			logger, err := observability.NewLogger(cfg.Logger, cfg.App)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			if opts.Migrate {
				if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
					return err
				}
			}

			pool := pg.PoolHandle()
			report, err := service.NewBootstrapService(
				repository.NewRoleTokenRepository(pool),
				repository.NewStaffRepository(pool),
				auth.NewBcryptCredentials(cfg.Auth.BcryptCost),
				cfg.Bootstrap,
				logger,
			).Run(ctx)
			if err != nil {
				return err
			}

			logger.Info("bootstrap complete",
				zap.Int("tokens_created", report.TokensCreated),
				zap.Bool("admin_created", report.AdminCreated),
				zap.String("admin_id", report.AdminID),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "tokens_created=%d admin_created=%t admin_id=%s\n",
				report.TokensCreated, report.AdminCreated, report.AdminID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply SQL migrations before seeding")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayush/media-reviews/backend/internal/auth"
	"github.com/ayush/media-reviews/backend/internal/config"
	"github.com/ayush/media-reviews/backend/internal/models"
	"github.com/ayush/media-reviews/backend/internal/render"
	"github.com/ayush/media-reviews/backend/internal/store"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), func(_ *config.Config, log *logrus.Logger, _ *store.PostgresStore) error {
				log.Info("schema up to date")
				return nil
			})
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var req models.SignupRequest
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user with the admin role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := render.Validate(&req); err != nil {
				return err
			}
			return withStore(cmd.Context(), func(cfg *config.Config, log *logrus.Logger, s *store.PostgresStore) error {
				hashed, err := auth.NewBcryptHasher(cfg.BcryptCost).Hash(req.Password)
				if err != nil {
					return err
				}
				u, err := s.CreateUser(cmd.Context(), &models.User{
					Username:       req.Username,
					Email:          req.Email,
					HashedPassword: hashed,
					Role:           auth.RoleAdmin.String(),
				})
				if errors.Is(err, models.ErrConflict) {
					return fmt.Errorf("user %q or email %q already exists", req.Username, req.Email)
				}
				if err != nil {
					return err
				}
				log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("admin created")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "admin username")
	cmd.Flags().StringVar(&req.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&req.Password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// withStore connects to PostgreSQL, applies the schema and hands the store to fn.
func withStore(ctx context.Context, fn func(*config.Config, *logrus.Logger, *store.PostgresStore) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer pool.Close()

	s := store.NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return fn(cfg, log, s)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/media-reviews/backend/internal/audit"
	"github.com/ayush/media-reviews/backend/internal/auth"
	"github.com/ayush/media-reviews/backend/internal/catalog"
	"github.com/ayush/media-reviews/backend/internal/config"
	"github.com/ayush/media-reviews/backend/internal/middleware"
	"github.com/ayush/media-reviews/backend/internal/render"
	"github.com/ayush/media-reviews/backend/internal/reviews"
	"github.com/ayush/media-reviews/backend/internal/store"
	"github.com/ayush/media-reviews/backend/internal/users"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.WithError(err).Error("postgres connect")
		return err
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.WithError(err).Error("postgres migrate")
		return err
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.WithError(err).Error("mongo connect")
		return err
	}
	defer mongoClient.Disconnect(context.Background())
	auditStore := store.NewAuditStore(mongoClient.Database(cfg.MongoDB))
	if err := auditStore.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("audit indexes")
	}
	trail := audit.NewTrail(auditStore, log)

	// ── Metrics ──────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Error("redis connect")
		return err
	}
	defer rdb.Close()
	ratings := store.NewRatingCache(rdb, cfg.RatingCacheTTL, metrics)

	// ── MinIO ────────────────────────────────────────────────
	posters, err := store.NewPosterStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.WithError(err).Error("minio connect")
		return err
	}

	// ── Auth ─────────────────────────────────────────────────
	codec, err := auth.NewTokenCodec(cfg)
	if err != nil {
		log.WithError(err).Error("token codec")
		return err
	}
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	authn := auth.NewAuthenticator(codec, pgStore, log)
	guard := middleware.NewAuth(authn, log, metrics)

	// ── Handlers ─────────────────────────────────────────────
	categoryStore := store.NewTaxonomyStore(pgPool, store.Categories)
	h := handlers{
		auth:       auth.NewHandler(pgStore, hasher, codec, authn, trail, log),
		users:      users.NewHandler(pgStore, hasher, trail, log),
		categories: catalog.NewCategories(categoryStore, trail, log),
		genres:     catalog.NewGenres(store.NewTaxonomyStore(pgPool, store.Genres), trail, log),
		titles:     catalog.NewTitles(pgStore, categoryStore, ratings, posters, trail, log),
		reviews:    reviews.NewHandler(pgStore, ratings, trail, log),
		audit:      audit.NewHandler(auditStore, log),
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, log, metrics, guard, h),
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		log.WithError(err).Error("server error")
		return err
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type handlers struct {
	auth       *auth.Handler
	users      *users.Handler
	categories *catalog.Terms
	genres     *catalog.Terms
	titles     *catalog.Titles
	reviews    *reviews.Handler
	audit      *audit.Handler
}

func newRouter(cfg *config.Config, log logrus.FieldLogger, metrics *middleware.Metrics, guard *middleware.Auth, h handlers) http.Handler {
	staff := guard.RequireScopes(auth.StaffScopes)
	member := guard.RequireScopes(auth.MemberScopes)
	admin := guard.RequireScopes(auth.AdminScopes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/signup", h.auth.Signup)
		r.Post("/login", h.auth.Login)
		r.Post("/refresh", h.auth.Refresh)

		r.Route("/users", func(r chi.Router) {
			r.With(staff).Get("/", h.users.List)
			r.With(guard.RequireAuth).Get("/me", h.users.Me)
			r.With(guard.RequireAuth).Put("/me", h.users.UpdateMe)
			r.With(staff).Get("/{username}", h.users.Get)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.categories.List)
			r.With(staff).Post("/", h.categories.Create)
			r.With(staff).Delete("/{slug}", h.categories.Delete)
		})
		r.Route("/genres", func(r chi.Router) {
			r.Get("/", h.genres.List)
			r.With(staff).Post("/", h.genres.Create)
			r.With(staff).Delete("/{slug}", h.genres.Delete)
		})

		r.Route("/titles", func(r chi.Router) {
			r.With(guard.RequireAuth).Get("/", h.titles.List)
			r.With(staff).Post("/", h.titles.Create)

			r.Route("/{titleID}", func(r chi.Router) {
				r.With(guard.RequireAuth).Get("/", h.titles.Get)
				r.With(staff).Put("/", h.titles.Update)
				r.With(staff).Delete("/", h.titles.Delete)
				r.With(guard.RequireAuth).Get("/poster", h.titles.Poster)
				r.With(staff).Put("/poster", h.titles.UploadPoster)

				r.Route("/reviews", func(r chi.Router) {
					r.With(guard.RequireAuth).Get("/", h.reviews.ListReviews)
					r.With(member).Post("/", h.reviews.CreateReview)

					r.Route("/{reviewID}", func(r chi.Router) {
						r.With(guard.RequireAuth).Get("/", h.reviews.GetReview)
						r.With(member).Put("/", h.reviews.UpdateReview)
						r.With(staff).Delete("/", h.reviews.DeleteReview)

						r.Route("/comments", func(r chi.Router) {
							r.With(guard.RequireAuth).Get("/", h.reviews.ListComments)
							r.With(member).Post("/", h.reviews.CreateComment)
							r.With(member).Put("/{commentID}", h.reviews.UpdateComment)
							r.With(member).Delete("/{commentID}", h.reviews.DeleteComment)
						})
					})
				})
			})
		})

		r.With(admin).Get("/audit", h.audit.List)
	})

	return r
}

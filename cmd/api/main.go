package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/leadbridge/internal/config"
	"github.com/xavierca1/leadbridge/internal/infra/cache"
	"github.com/xavierca1/leadbridge/internal/infra/database"
	"github.com/xavierca1/leadbridge/internal/infra/http/handlers"
	"github.com/xavierca1/leadbridge/internal/infra/http/middleware"
	"github.com/xavierca1/leadbridge/internal/infra/integration/backend"
	"github.com/xavierca1/leadbridge/internal/infra/integration/fub"
	"github.com/xavierca1/leadbridge/internal/infra/mail"
	"github.com/xavierca1/leadbridge/internal/infra/oauth"
	"github.com/xavierca1/leadbridge/internal/infra/queue"
	"github.com/xavierca1/leadbridge/internal/infra/worker"
	"github.com/xavierca1/leadbridge/internal/usecase"
)

// allowedOrigins pins CORS to the configured site. Submissions come
// from the site's own pages only; a wildcard would undo the pin.
func allowedOrigins(domain string) []string {
	return []string{"https://" + domain, "https://www." + domain}
}

func main() {
	godotenv.Load()

	cfg, err := config.LoadAll()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	db, err := database.NewDBConnection(cfg.Database.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatal(err)
	}

	// 1. Repositories
	deliveryRepo := database.NewDeliveryRepository(db)
	credRepo := database.NewCredentialRepository(db)
	tagRepo := database.NewTagRepository(db)
	settingsRepo := database.NewSettingsRepository(db)

	// 2. Duplicate window store. Redis when configured so the window
	// holds across replicas; in-process map otherwise.
	var fingerprints usecase.FingerprintStore
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		fingerprints = cache.NewRedisStore(rdb)
		log.Printf("🔒 duplicate window backed by redis at %s", cfg.Redis.Address)
	} else {
		fingerprints = cache.NewMemoryStore()
	}

	// 3. Integrations. The FUB client resolves account ids for the
	// OAuth manager, and the manager signs the FUB client's calls, so
	// the caller is wired after both exist.
	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Site.Domain)
	fubClient := fub.NewClient(cfg.FUB.BaseURL, nil)
	manager := oauth.NewManager(
		cfg.OAuth.ClientID, cfg.OAuth.ClientSecret,
		cfg.OAuth.AuthorizeURL, cfg.OAuth.TokenURL, cfg.OAuth.RedirectURL,
		credRepo, fubClient, backendClient,
	)
	fubClient.UseCaller(manager)

	// 4. UseCases
	deliverUC := usecase.NewDeliverLeadUseCase(manager, backendClient, fubClient, deliveryRepo)
	submitUC := usecase.NewSubmitLeadUseCase(deliverUC, settingsRepo, fingerprints)
	syncTagsUC := usecase.NewSyncTagsUseCase(fubClient, tagRepo, settingsRepo)

	// 5. Alert pipeline (optional) + retry worker
	var rabbitConn *amqp.Connection
	retryWorker := worker.NewRetryWorker(deliveryRepo, deliverUC, manager).
		WithSchedule(cfg.Worker.Interval)

	if cfg.Queue.Enabled {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.Queue.User, cfg.Queue.Pass, cfg.Queue.Host, cfg.Queue.Port)
		if err != nil {
			log.Fatal(err)
		}
		defer rabbitMQ.Conn.Close()
		defer rabbitMQ.Ch.Close()
		rabbitConn = rabbitMQ.Conn

		producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
		retryWorker.WithAlerts(producer)

		if cfg.Mail.Enabled {
			mailSender := mail.NewEmailSender(
				cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password,
				cfg.Mail.From, cfg.Mail.Operator,
			)
			alertWorker := queue.NewAlertWorker(rabbitMQ.Ch, mailSender)
			go alertWorker.Start(queue.QueueName)
		}
	}

	go retryWorker.Start(ctx)

	// 6. Handlers
	submissionHandler := handlers.NewSubmissionHandler(submitUC, cfg.Site.SubmissionToken)
	oauthHandler := handlers.NewOAuthHandler(manager)
	adminHandler := handlers.NewAdminHandler(retryWorker, syncTagsUC, deliveryRepo, tagRepo, settingsRepo, cfg.Site.AdminToken).
		WithUserDirectory(fubClient).
		WithPixelBackend(manager, backendClient)
	healthHandler := handlers.NewHealthHandler(db, rdb, rabbitConn)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.Site.Domain),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Admin-Token"},
	}))

	r.Post("/leads", submissionHandler.Submit)

	r.Get("/oauth/authorize", oauthHandler.Authorize)
	r.Get("/oauth/callback", oauthHandler.Callback)
	r.Get("/oauth/status", oauthHandler.Status)
	r.Post("/oauth/disconnect", oauthHandler.Disconnect)

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminHandler.Authorize)
		r.Post("/retry", adminHandler.TriggerRetry)
		r.Post("/tags/sync", adminHandler.SyncTags)
		r.Get("/leads", adminHandler.ListLeads)
		r.Get("/users", adminHandler.ListUsers)
		r.Get("/settings", adminHandler.GetSettings)
		r.Post("/settings", adminHandler.SaveSettings)
	})

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	log.Printf("🔥 leadbridge listening on %s", cfg.Server.Address)
	if err := http.ListenAndServe(cfg.Server.Address, r); err != nil {
		log.Fatal(err)
	}
}

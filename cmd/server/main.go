package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/firestore"
	firebaseApp "firebase.google.com/go/v4"
	"github.com/finscale/finscale-api/internal/app"
	"github.com/finscale/finscale-api/internal/config"
	"github.com/finscale/finscale-api/internal/jobs"
	"github.com/finscale/finscale-api/internal/repository"
	fsrepo "github.com/finscale/finscale-api/internal/repository/firestore"
	"github.com/finscale/finscale-api/internal/repository/memory"
	"github.com/finscale/finscale-api/internal/repository/postgres"
	"github.com/finscale/finscale-api/internal/ws"
	"github.com/finscale/finscale-api/migrations"
	"github.com/finscale/finscale-api/pkg/auth"
	"github.com/finscale/finscale-api/pkg/firebase"
	"github.com/finscale/finscale-api/pkg/mailer"
	"github.com/finscale/finscale-api/pkg/notification"
	"github.com/finscale/finscale-api/pkg/ratelimit"
	"github.com/finscale/finscale-api/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title           Finscale API
// @version         1.0
// @description     Medical shift (plantão) scheduling API: shift board, bookings, push notifications and earnings statistics.

// @contact.name   Finscale Support
// @contact.email  suporte@finscale.app

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting Finscale API Server [env=%s, data_source=%s]", cfg.App.Env, cfg.App.DataSource)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ==================== Firebase (optional) ====================
	var fbApp *firebaseApp.App
	if cfg.Firebase.Enabled() {
		a, err := firebase.NewApp(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.ProjectID)
		if err != nil {
			log.Printf("⚠️  Firebase not available: %v (push and Firebase login disabled)", err)
		} else {
			fbApp = a
			log.Println("✅ Firebase initialized")
		}
	}

	// ==================== Data source ====================
	repos, closeStore := openRepositories(ctx, cfg, fbApp)
	defer closeStore()

	// ==================== Redis (optional) ====================
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Println("✅ Connected to Redis")
	}

	var (
		blacklist   auth.Blacklist
		apiLimiter  ratelimit.Limiter
		authLimiter ratelimit.Limiter
	)
	if rdb != nil {
		blacklist = auth.NewRedisBlacklist(rdb)
		apiLimiter = ratelimit.NewRedisLimiter(rdb, "api", cfg.RateLimit.Points, cfg.RateLimit.Duration)
		authLimiter = ratelimit.NewRedisLimiter(rdb, "auth", cfg.RateLimit.AuthPoints, cfg.RateLimit.AuthDuration)
	} else {
		log.Println("⚠️  Redis disabled: token blacklist and rate limits are per instance")
		blacklist = auth.NewMemoryBlacklist()
		memAPI := ratelimit.NewMemoryLimiter(cfg.RateLimit.Points, cfg.RateLimit.Duration)
		memAuth := ratelimit.NewMemoryLimiter(cfg.RateLimit.AuthPoints, cfg.RateLimit.AuthDuration)
		go memAPI.RunCleanup(ctx, cfg.RateLimit.Duration)
		go memAuth.RunCleanup(ctx, cfg.RateLimit.AuthDuration)
		apiLimiter, authLimiter = memAPI, memAuth
	}

	// ==================== Email (SMTP / Mailpit) ====================
	mailClient := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	log.Printf("📧 SMTP configured: %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)

	deps := app.Deps{
		Config:      cfg,
		Repos:       repos,
		JWT:         auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry),
		Blacklist:   blacklist,
		APILimiter:  apiLimiter,
		AuthLimiter: authLimiter,
		Mailer:      mailClient,
	}

	// Push + Firebase login
	if fbApp != nil {
		if sender, err := notification.NewFCMSender(ctx, fbApp); err != nil {
			log.Printf("⚠️  FCM not available: %v (logging notifications instead)", err)
		} else {
			deps.Sender = sender
		}
		if verifier, err := firebase.NewTokenVerifier(ctx, fbApp); err != nil {
			log.Printf("⚠️  Firebase Auth not available: %v", err)
		} else {
			deps.Verifier = verifier
		}
	}

	// MinIO Storage
	if cfg.MinIO.Endpoint != "" {
		minioStorage, err := storage.NewMinIO(ctx, storage.Config{
			Endpoint:  cfg.MinIO.Endpoint,
			PublicURL: cfg.MinIO.PublicURL,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			log.Printf("⚠️  MinIO not available: %v (avatar upload disabled)", err)
		} else {
			deps.Storage = minioStorage
			log.Println("✅ Connected to MinIO")
		}
	}

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)
	go hub.Run(ctx)
	deps.Hub = hub

	// ==================== Gin Router ====================
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	api := app.New(deps)

	// ==================== Scheduler ====================
	if cfg.Scheduler.Enabled {
		scheduler := jobs.NewShiftScheduler(repos, api.Notifications, api.Shifts,
			cfg.Scheduler.Interval, cfg.Scheduler.ReminderWindow, cfg.App.Location())
		go scheduler.Run(ctx)
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 Finscale API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	<-ctx.Done()
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited gracefully")
}

// openRepositories builds the stores selected by DATA_SOURCE and returns a
// function releasing their connections
func openRepositories(ctx context.Context, cfg *config.Config, fbApp *firebaseApp.App) (repository.Repositories, func()) {
	if cfg.App.DataSource == config.DataSourceMemory {
		log.Println("🧪 Using in-memory data source: nothing is persisted")
		return memory.New(), func() {}
	}

	// ==================== Database (PostgreSQL) ====================
	db, err := postgres.Open(cfg.DB.DSN(), cfg.App.IsProduction())
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := postgres.AutoMigrate(db); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	repos := postgres.New(db)
	closers := []func(){func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}}

	switch cfg.App.DataSource {
	case config.DataSourceFirestore:
		if fbApp == nil {
			log.Fatal("❌ DATA_SOURCE=firestore requires FIREBASE_PROJECT_ID or FIREBASE_CREDENTIALS_FILE")
		}
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			log.Fatalf("❌ Failed to connect to Firestore: %v", err)
		}
		repos.Shifts = fsrepo.NewShiftRepository(client)
		closers = append(closers, func() { closeFirestore(client) })
		log.Println("✅ Shifts stored in Firestore")
	case config.DataSourcePostgres:
	default:
		log.Fatalf("❌ Unknown DATA_SOURCE %q (use postgres, firestore or memory)", cfg.App.DataSource)
	}

	return repos, func() {
		for _, c := range closers {
			c()
		}
	}
}

func closeFirestore(client *firestore.Client) {
	if err := client.Close(); err != nil {
		log.Printf("⚠️  Failed to close Firestore client: %v", err)
	}
}

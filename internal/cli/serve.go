package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sciencebindu-backend/internal/assessment"
	"sciencebindu-backend/internal/cache"
	"sciencebindu-backend/internal/catalog"
	"sciencebindu-backend/internal/config"
	"sciencebindu-backend/internal/database"
	"sciencebindu-backend/internal/handlers"
	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/repository"
	"sciencebindu-backend/internal/router"
	"sciencebindu-backend/internal/services"
	"sciencebindu-backend/internal/websocket"
	"sciencebindu-backend/internal/worker"
)

const (
	mailWorkers     = 3
	surahCacheTTL   = 24 * time.Hour
	summaryCacheTTL = 7 * 24 * time.Hour
)

// NewServeCmd builds the subcommand that runs the API server.
func NewServeCmd(port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, mail workers and digest scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if *port != "" {
				cfg.Port = *port
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log.Println("🚀 Starting Science Bindu backend...")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── PostgreSQL ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("✗ PostgreSQL connection failed: %w", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	if err := database.RunMigrations(ctx, pool, database.Migrations()); err != nil {
		return fmt.Errorf("✗ Database migration failed: %w", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Redis ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("✗ Redis connection failed: %w", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Static datasets ────
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("✗ Catalog load failed: %w", err)
	}
	log.Printf("✓ Catalog loaded (%d classes, %d quiz categories, %d posts)",
		len(cat.Classes()), len(cat.Categories()), len(cat.Posts()))

	// ──── Gemini ────
	gemini, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, redisClients.Store)
	if err != nil {
		return fmt.Errorf("✗ Gemini client initialization failed: %w", err)
	}
	defer gemini.Close()
	if gemini.Enabled() {
		log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)
	} else {
		log.Println("✗ GEMINI_API_KEY not set, AI features will report a missing key")
	}

	// ──── Repositories ────
	userRepo := repository.NewUserRepo(pool)
	resultRepo := repository.NewQuizResultRepo(pool)
	bookmarkRepo := repository.NewBookmarkRepo(pool)
	inquiryRepo := repository.NewInquiryRepo(pool)
	chatSessionRepo := repository.NewChatSessionRepo(pool)

	// ──── Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	mailQueue := services.NewMailQueue(redisClients.Store)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)

	authService := services.NewAuthService(userRepo, redisClients.Store, jwtAuth, mailQueue, gemini)
	profileService := services.NewProfileService(userRepo, resultRepo, bookmarkRepo, inquiryRepo, cat, mailQueue, cfg.InquiryNotifyEmail)
	examService := services.NewExamService(
		assessment.NewStore(redisClients.Store, cfg.ExamSessionTTL),
		resultRepo,
		cat,
		services.NewSuggestionService(gemini, cfg.GeminiSuggestionModel),
		gemini,
		cfg.Locale,
	)
	chatService := services.NewChatService(gemini, chatSessionRepo, userRepo, redisClients.Store, cfg.ChatSessionTTL, gemini)
	videoService := services.NewVideoService(
		services.NewPipedClient(cfg.PipedMirrors, cfg.PipedTimeout),
		services.NewYouTubeService(),
		gemini,
		cat,
		cache.NewJSONCache(redisClients.Store, "video:summary", summaryCacheTTL),
	)
	quranService := services.NewQuranService(cfg.QuranAPIURL, cache.NewJSONCache(redisClients.Store, "surah", surahCacheTTL), gemini)

	// ──── Background workers ────
	workerPool := worker.NewPool(redisClients.Store, emailService, mailWorkers)
	workerPool.Start()
	log.Printf("✓ Mail worker pool started (%d goroutines)", mailWorkers)

	scheduler := services.NewNotificationScheduler(userRepo, mailQueue, redisClients.Store)
	scheduler.Start()
	log.Println("✓ Weekly digest scheduler started")

	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── HTTP ────
	r := router.New(jwtAuth, router.Handlers{
		Auth:    handlers.NewAuthHandler(authService),
		Profile: handlers.NewProfileHandler(profileService),
		Content: handlers.NewContentHandler(cat),
		Exam:    handlers.NewExamHandler(examService, services.NewFileExtractService()),
		Chat:    handlers.NewChatHandler(chatService),
		Video:   handlers.NewVideoHandler(videoService),
		Quran:   handlers.NewQuranHandler(quranService),
	}, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("✓ Science Bindu backend ready on http://localhost:%s", cfg.Port)
		log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
		log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	workerPool.Stop()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

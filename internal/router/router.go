package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"sciencebindu-backend/internal/handlers"
	"sciencebindu-backend/internal/metrics"
	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/websocket"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *handlers.AuthHandler
	Profile *handlers.ProfileHandler
	Content *handlers.ContentHandler
	Exam    *handlers.ExamHandler
	Chat    *handlers.ChatHandler
	Video   *handlers.VideoHandler
	Quran   *handlers.QuranHandler
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, wsHub *websocket.Hub, frontendURL string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))
	r.Use(metrics.Middleware)

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	// AI-backed routes share a looser per-IP budget
	aiLimiter := middleware.NewRateLimiter(30, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/signup", h.Auth.SignUp)
			r.Post("/signin", h.Auth.SignIn)
			r.Post("/refresh", h.Auth.Refresh)
			r.Post("/password-reset", h.Auth.RequestPasswordReset)
			r.Post("/password-reset/confirm", h.Auth.ConfirmPasswordReset)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/signout", h.Auth.SignOut)
			})
		})

		// ──── Static catalog (public) ────
		r.Get("/blog", h.Content.ListPosts)
		r.Get("/blog/{id}", h.Content.GetPost)
		r.Get("/academic/classes", h.Content.Classes)
		r.Get("/academic/roadmap", h.Content.Roadmap)
		r.Get("/quiz/categories", h.Content.QuizCategories)
		r.Get("/tools/quranic-elements", h.Content.QuranicElements)
		r.Get("/tools/salah-benefits", h.Content.SalahBenefits)
		r.Get("/tools/tasbeeh", h.Content.Tasbeeh)

		// ──── Profile Routes ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/profile", h.Profile.Get)
			r.Put("/profile", h.Profile.Update)
			r.Get("/profile/quiz-results", h.Profile.QuizResults)
			r.Get("/profile/quiz-results.xlsx", h.Profile.ExportQuizResults)
			r.Put("/bookmarks/{postID}", h.Profile.ToggleBookmark)
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Optional)
			r.Post("/inquiries", h.Profile.SubmitInquiry)
		})

		// ──── Exam Routes ────
		r.Route("/exam", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", h.Exam.Current)
			r.Delete("/", h.Exam.Exit)
			r.With(aiLimiter.Middleware).Post("/scope", h.Exam.SelectScope)
			r.With(aiLimiter.Middleware).Post("/scope/upload", h.Exam.UploadScope)
			r.Post("/start", h.Exam.Start)
			r.Post("/select", h.Exam.Select)
			r.Post("/next", h.Exam.Next)
			r.Post("/retry", h.Exam.Retry)
		})

		// ──── Chat Routes ────
		r.Route("/chat", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/start", h.Chat.Start)
			r.With(aiLimiter.Middleware).Post("/messages", h.Chat.SendMessage)
			r.Get("/current", h.Chat.Current)
			r.Get("/sessions", h.Chat.ListSessions)
			r.Get("/sessions/{id}", h.Chat.GetSession)
			r.Delete("/sessions/{id}", h.Chat.DeleteSession)
			r.Post("/sessions/{id}/load", h.Chat.LoadSession)
		})

		// ──── Video Routes (public) ────
		r.Route("/videos", func(r chi.Router) {
			r.Get("/search", h.Video.Search)
			r.Get("/categories", h.Video.Categories)
			r.Get("/categories/{category}", h.Video.Category)
			r.Get("/{id}", h.Video.Details)
			r.With(aiLimiter.Middleware).Post("/{id}/summary", h.Video.Summary)
		})

		// ──── Surah Routes (public) ────
		r.Route("/surahs/{n}", func(r chi.Router) {
			r.Get("/", h.Quran.Surah)
			r.With(aiLimiter.Middleware).Post("/infographic", h.Quran.Infographic)
			r.With(aiLimiter.Middleware).Post("/chat", h.Quran.Ask)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}

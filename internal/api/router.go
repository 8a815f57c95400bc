package api

import (
	"convoflow-backend/internal/config"
	"convoflow-backend/internal/handlers"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler    *handlers.AuthHandler
	ChatHandler    *handlers.ChatHandler
	SnippetHandler *handlers.SnippetHandler
	Config         *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID) // Inject request ID into context
	r.Use(middleware.RealIP)    // Use X-Forwarded-For or X-Real-IP
	r.Use(middleware.Logger)    // Log requests (consider a structured logger)
	r.Use(middleware.Recoverer) // Recover from panics, return 500
	// No blanket timeout middleware here: the streaming turn endpoint holds
	// its response open for up to the turn timeout, which the handler
	// enforces itself.

	// --- CORS Configuration ---
	// Adjust AllowedOrigins for your frontend deployment(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*.vercel.app"}, // Add your frontend dev/prod URLs
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		// Apply JWT Authentication Middleware
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		// --- Mount Chat Routes ---
		if deps.ChatHandler != nil {
			// The streaming turn endpoint
			r.Post("/chat", deps.ChatHandler.HandleTurn)
			r.Delete("/chat/{conversationID}", deps.ChatHandler.HandleDeleteConversation)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", deps.ChatHandler.HandleListConversations)
				r.Get("/{conversationID}/messages", deps.ChatHandler.HandleListMessages)
			})
		} else {
			log.Println("WARN: ChatHandler dependency is nil, skipping /v1/chat routes.")
		}

		// --- Mount Snippet Routes ---
		if deps.SnippetHandler != nil {
			r.Route("/snippets", func(r chi.Router) {
				r.Get("/", deps.SnippetHandler.HandleListSnippets)
				r.Post("/", deps.SnippetHandler.HandleSnippetAction)
			})
		} else {
			log.Println("WARN: SnippetHandler dependency is nil, skipping /v1/snippets routes.")
		}
	})

	return r
}

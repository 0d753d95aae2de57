package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"redcodegreencode/internal/cache"
	"redcodegreencode/internal/config"
	"redcodegreencode/internal/service"
	"redcodegreencode/internal/transport/rest/handler"
	"redcodegreencode/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	Config      *config.Config
	TeamService *service.TeamService
	GameService *service.GameService
	Executor    *service.ExecutorService
	Leaderboard cache.LeaderboardCache
	WSHub       *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	teamHandler := handler.NewTeamHandler(c.TeamService)
	leaderboardHandler := handler.NewLeaderboardHandler(c.TeamService, c.Leaderboard)
	executeHandler := handler.NewExecuteHandler(c.Executor)
	healthHandler := handler.NewHealthHandler(c.Config.ServiceName)
	wsHandler := ws.NewHandler(c.WSHub, c.GameService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/check-team", teamHandler.CheckTeam).Methods("POST", "OPTIONS")
	api.HandleFunc("/login", teamHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/register", teamHandler.Register).Methods("POST", "OPTIONS")
	api.HandleFunc("/leaderboard", leaderboardHandler.Leaderboard).Methods("GET", "OPTIONS")
	api.HandleFunc("/execute", executeHandler.Execute).Methods("POST", "OPTIONS")
	api.HandleFunc("/health", healthHandler.Health).Methods("GET")

	// Realtime channel (membership is advisory, no transport auth)
	r.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

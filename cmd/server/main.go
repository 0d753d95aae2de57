package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"redcodegreencode/internal/cache"
	"redcodegreencode/internal/config"
	"redcodegreencode/internal/puzzle"
	"redcodegreencode/internal/repository"
	"redcodegreencode/internal/service"
	"redcodegreencode/internal/transport/rest"
	"redcodegreencode/internal/transport/ws"
)

func main() {
	log.Println("started")
	_ = godotenv.Load()
	ctx := context.Background()

	cfg := config.Load()

	// Team record store: MongoDB when reachable at startup, otherwise
	// the process-memory fallback. The choice is made once; there is
	// no runtime failover.
	teamRepo, mongoClient := connectStore(ctx, cfg)
	if mongoClient != nil {
		defer mongoClient.Disconnect(ctx)
	}

	// Optional redis leaderboard snapshot cache
	var leaderboard cache.LeaderboardCache
	if cfg.RedisAddr != "" {
		addr := cfg.RedisAddr
		if len(addr) > 8 && addr[:8] == "redis://" {
			addr = addr[8:]
		}
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("Warning: redis unreachable, leaderboard cache disabled: %v", err)
		} else {
			leaderboard = cache.NewLeaderboardCache(rdb)
			log.Println("Connected to Redis")
		}
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Initialize services
	gen := puzzle.New(nil)
	authSvc := service.NewAuthService(cfg)
	teamSvc := service.NewTeamService(teamRepo, authSvc, gen)
	executor := service.NewExecutorService(cfg.PistonURL)
	gameSvc := service.NewGameService(teamRepo, gen)
	gameSvc.SetBroadcaster(wsHub)
	if leaderboard != nil {
		gameSvc.SetLeaderboardCache(leaderboard)
	}

	container := &rest.Container{
		Config:      cfg,
		TeamService: teamSvc,
		GameService: gameSvc,
		Executor:    executor,
		Leaderboard: leaderboard,
		WSHub:       wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		log.Println("Endpoints:")
		log.Println("  POST /api/check-team")
		log.Println("  POST /api/login")
		log.Println("  POST /api/register")
		log.Println("  GET  /api/leaderboard")
		log.Println("  POST /api/execute")
		log.Println("  GET  /api/health")
		log.Println("  WS   /ws")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// connectStore selects the team store backend. Startup-time database
// unreachability is the one recovered failure: the server comes up on
// the memory store instead of refusing to start.
func connectStore(ctx context.Context, cfg *config.Config) (repository.TeamRepo, *mongo.Client) {
	connectCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(3*time.Second))
	if err == nil {
		err = client.Ping(connectCtx, nil)
	}
	if err != nil {
		log.Printf("Warning: MongoDB unreachable (%v). Switching to MEMORY_FALLBACK mode.", err)
		if client != nil {
			client.Disconnect(ctx)
		}
		return repository.NewMemoryTeamRepo(), nil
	}

	log.Println("Connected to MongoDB")
	repo, err := repository.NewMongoTeamRepo(ctx, client.Database(cfg.MongoDatabase))
	if err != nil {
		log.Fatal("Failed to initialize team store:", err)
	}
	return repo, client
}

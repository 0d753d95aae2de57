package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"redcodegreencode/internal/config"
	"redcodegreencode/internal/model"
	"redcodegreencode/internal/puzzle"
	"redcodegreencode/internal/repository"
)

// Seeds a handful of demo teams with generated puzzle and problem
// sets, for dashboard testing against a real database.
func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	repo, err := repository.NewMongoTeamRepo(ctx, client.Database(cfg.MongoDatabase))
	if err != nil {
		log.Fatalf("Failed to initialize team store: %v", err)
	}

	gen := puzzle.New(nil)

	for i := 1; i <= 4; i++ {
		team := &model.Team{
			TeamName: fmt.Sprintf("demo-team-%d", i),
			Password: "demo123",
			Member1:  model.Member{Name: fmt.Sprintf("Member %d-1", i), RegNo: fmt.Sprintf("23BCE%04d", i*2-1), Email: fmt.Sprintf("m%d1@example.com", i)},
			Member2:  model.Member{Name: fmt.Sprintf("Member %d-2", i), RegNo: fmt.Sprintf("23BCE%04d", i*2), Email: fmt.Sprintf("m%d2@example.com", i)},
			Round1Progress: model.Round1Progress{
				Puzzles:             gen.Round1Set(),
				SelectedModuleIndex: -1,
				Lives:               3,
				Status:              model.Round1Active,
			},
			Round2Progress: model.Round2Progress{
				Problems: gen.Round2Set(),
				Status:   model.Round2Waiting,
			},
		}

		err := repo.CreateTeam(ctx, team)
		switch {
		case err == repository.ErrDuplicateTeam:
			log.Printf("Team %s already exists, skipping", team.TeamName)
		case err != nil:
			log.Fatalf("Failed to create team %s: %v", team.TeamName, err)
		default:
			log.Printf("Created team %s (%s)", team.TeamName, team.ID)
		}
	}

	log.Println("Seed complete")
}

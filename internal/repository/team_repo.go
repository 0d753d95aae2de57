package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"redcodegreencode/internal/model"
)

// ErrDuplicateTeam is returned when a team name is already registered
var ErrDuplicateTeam = errors.New("team name already registered")

// TeamRepo is the team record store contract. Both the MongoDB and the
// in-memory implementations satisfy it; the backend is chosen once at
// startup and handler code never branches on storage kind.
type TeamRepo interface {
	// FindTeam resolves an identifier that may be either a record ID or
	// the team's display name. A miss returns (nil, nil).
	FindTeam(ctx context.Context, identifier string) (*model.Team, error)
	ListTeams(ctx context.Context) ([]*model.Team, error)
	CreateTeam(ctx context.Context, team *model.Team) error
	// UpdateTeam replaces the whole stored record.
	UpdateTeam(ctx context.Context, team *model.Team) error
	// SetFields applies a partial update of dotted-path fields.
	SetFields(ctx context.Context, id string, fields map[string]interface{}) error
}

type mongoTeamRepo struct {
	collection *mongo.Collection
}

// NewMongoTeamRepo builds the durable store over the teams collection
// and ensures the unique team-name index. Record IDs are ObjectID hex
// strings.
func NewMongoTeamRepo(ctx context.Context, db *mongo.Database) (TeamRepo, error) {
	coll := db.Collection("teams")

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "teamName", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return &mongoTeamRepo{collection: coll}, nil
}

func (r *mongoTeamRepo) FindTeam(ctx context.Context, identifier string) (*model.Team, error) {
	// ID lookup first, then fall back to the display name.
	if primitive.IsValidObjectID(identifier) {
		var team model.Team
		err := r.collection.FindOne(ctx, bson.M{"_id": identifier}).Decode(&team)
		if err == nil {
			return &team, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
	}

	var team model.Team
	err := r.collection.FindOne(ctx, bson.M{"teamName": identifier}).Decode(&team)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

func (r *mongoTeamRepo) ListTeams(ctx context.Context) ([]*model.Team, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []*model.Team
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *mongoTeamRepo) CreateTeam(ctx context.Context, team *model.Team) error {
	if team.ID == "" {
		team.ID = primitive.NewObjectID().Hex()
	}
	if team.RegistrationTime.IsZero() {
		team.RegistrationTime = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, team)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateTeam
	}
	return err
}

func (r *mongoTeamRepo) UpdateTeam(ctx context.Context, team *model.Team) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": team.ID}, team)
	return err
}

func (r *mongoTeamRepo) SetFields(ctx context.Context, id string, fields map[string]interface{}) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	return err
}

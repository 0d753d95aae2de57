package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"redcodegreencode/internal/model"
)

// memoryTeamRepo is the process-memory fallback used when MongoDB is
// unreachable at startup. Records are deep-copied on the way in and
// out so callers never alias the stored state.
type memoryTeamRepo struct {
	mu    sync.RWMutex
	teams []*model.Team
}

// NewMemoryTeamRepo builds the in-memory store
func NewMemoryTeamRepo() TeamRepo {
	return &memoryTeamRepo{}
}

func cloneTeam(team *model.Team) (*model.Team, error) {
	raw, err := json.Marshal(team)
	if err != nil {
		return nil, err
	}
	var cp model.Team
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (r *memoryTeamRepo) FindTeam(ctx context.Context, identifier string) (*model.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.teams {
		if t.ID == identifier || t.TeamName == identifier {
			return cloneTeam(t)
		}
	}
	return nil, nil
}

func (r *memoryTeamRepo) ListTeams(ctx context.Context) ([]*model.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teams := make([]*model.Team, 0, len(r.teams))
	for _, t := range r.teams {
		cp, err := cloneTeam(t)
		if err != nil {
			return nil, err
		}
		teams = append(teams, cp)
	}
	return teams, nil
}

func (r *memoryTeamRepo) CreateTeam(ctx context.Context, team *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.teams {
		if t.TeamName == team.TeamName {
			return ErrDuplicateTeam
		}
	}

	if team.ID == "" {
		team.ID = uuid.New().String()
	}
	if team.RegistrationTime.IsZero() {
		team.RegistrationTime = time.Now()
	}

	cp, err := cloneTeam(team)
	if err != nil {
		return err
	}
	r.teams = append(r.teams, cp)
	return nil
}

func (r *memoryTeamRepo) UpdateTeam(ctx context.Context, team *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.teams {
		if t.ID == team.ID {
			cp, err := cloneTeam(team)
			if err != nil {
				return err
			}
			r.teams[i] = cp
			return nil
		}
	}
	return fmt.Errorf("team %s not found", team.ID)
}

func (r *memoryTeamRepo) SetFields(ctx context.Context, id string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, t := range r.teams {
		if t.ID != id {
			continue
		}

		// Apply dotted paths through a map form of the record, the
		// same shape a document store would patch.
		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}

		for path, value := range fields {
			encoded, err := json.Marshal(value)
			if err != nil {
				return err
			}
			var plain interface{}
			if err := json.Unmarshal(encoded, &plain); err != nil {
				return err
			}
			setPath(doc, strings.Split(path, "."), plain)
		}

		patched, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		var updated model.Team
		if err := json.Unmarshal(patched, &updated); err != nil {
			return err
		}
		r.teams[i] = &updated
		return nil
	}
	return fmt.Errorf("team %s not found", id)
}

func setPath(doc map[string]interface{}, path []string, value interface{}) {
	if len(path) == 1 {
		doc[path[0]] = value
		return
	}
	child, ok := doc[path[0]].(map[string]interface{})
	if !ok {
		child = make(map[string]interface{})
		doc[path[0]] = child
	}
	setPath(child, path[1:], value)
}

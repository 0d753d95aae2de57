package handler

import (
	"context"
	"net/http"
	"sort"

	"redcodegreencode/internal/cache"
	"redcodegreencode/internal/model"
	"redcodegreencode/internal/service"
)

// LeaderboardHandler serves the team listing for leaderboard views
type LeaderboardHandler struct {
	teamSvc     *service.TeamService
	leaderboard cache.LeaderboardCache
}

// NewLeaderboardHandler creates a new leaderboard handler. The cache
// may be nil when redis is not configured.
func NewLeaderboardHandler(teamSvc *service.TeamService, leaderboard cache.LeaderboardCache) *LeaderboardHandler {
	return &LeaderboardHandler{
		teamSvc:     teamSvc,
		leaderboard: leaderboard,
	}
}

// Leaderboard handles GET /api/leaderboard
func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	teams, err := h.fetch(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch")
		return
	}
	if teams == nil {
		teams = []*model.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *LeaderboardHandler) fetch(ctx context.Context) ([]*model.Team, error) {
	if h.leaderboard != nil {
		if cached, err := h.leaderboard.GetSnapshot(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	teams, err := h.teamSvc.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].Score > teams[j].Score
	})
	return teams, nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"redcodegreencode/internal/model"
	"redcodegreencode/internal/puzzle"
	"redcodegreencode/internal/repository"
)

var (
	ErrTeamNotFound  = errors.New("team not found")
	ErrDuplicateTeam = repository.ErrDuplicateTeam
	ErrValidation    = errors.New("invalid registration payload")
)

// TeamService covers the stateless request/response operations: the
// existence check, login, registration and the leaderboard fetch.
type TeamService struct {
	repo    repository.TeamRepo
	authSvc *AuthService
	gen     *puzzle.Generator
}

// NewTeamService creates a new team service
func NewTeamService(repo repository.TeamRepo, authSvc *AuthService, gen *puzzle.Generator) *TeamService {
	return &TeamService{
		repo:    repo,
		authSvc: authSvc,
		gen:     gen,
	}
}

// CheckTeam reports whether a display name is registered, and whether
// it denotes the built-in admin principal.
func (s *TeamService) CheckTeam(ctx context.Context, teamName string) (*model.CheckTeamResponse, error) {
	if s.authSvc.IsAdminName(teamName) {
		return &model.CheckTeamResponse{Exists: true, IsAdmin: true}, nil
	}

	team, err := s.repo.FindTeam(ctx, teamName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up team: %w", err)
	}
	return &model.CheckTeamResponse{Exists: team != nil}, nil
}

// Login validates credentials against the admin sentinel or a stored
// team record. The password comparison is plain-text equality.
func (s *TeamService) Login(ctx context.Context, teamName, password string) (*model.LoginResponse, error) {
	if s.authSvc.CheckAdminLogin(teamName, password) {
		token, err := s.authSvc.GenerateSessionToken("", teamName, true)
		if err != nil {
			return nil, err
		}
		return &model.LoginResponse{Success: true, IsAdmin: true, Token: token}, nil
	}

	team, err := s.repo.FindTeam(ctx, teamName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil || team.Password != password {
		return nil, ErrInvalidCredentials
	}

	token, err := s.authSvc.GenerateSessionToken(team.ID, team.TeamName, false)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Success: true, Token: token, Player: team}, nil
}

// Register creates a team record with freshly generated round-1 and
// round-2 content. A taken name fails with ErrDuplicateTeam.
func (s *TeamService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Team, error) {
	if req.TeamName == "" || req.Password == "" {
		return nil, ErrValidation
	}
	if s.authSvc.IsAdminName(req.TeamName) {
		return nil, ErrDuplicateTeam
	}

	team := &model.Team{
		TeamName: req.TeamName,
		Password: req.Password,
		Member1:  model.Member{Name: req.M1Name, RegNo: req.M1Reg, Email: req.M1Email},
		Member2:  model.Member{Name: req.M2Name, RegNo: req.M2Reg, Email: req.M2Email},
		Round1Progress: model.Round1Progress{
			Puzzles:             s.gen.Round1Set(),
			CurrentPuzzle:       0,
			SelectedModuleIndex: -1,
			Lives:               3,
			Status:              model.Round1Active,
		},
		Round2Progress: model.Round2Progress{
			Problems: s.gen.Round2Set(),
			Status:   model.Round2Waiting,
		},
	}

	if err := s.repo.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// ListTeams returns every team record; the caller applies its own sort
func (s *TeamService) ListTeams(ctx context.Context) ([]*model.Team, error) {
	return s.repo.ListTeams(ctx)
}

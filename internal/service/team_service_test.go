package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"redcodegreencode/internal/config"
	"redcodegreencode/internal/model"
	"redcodegreencode/internal/puzzle"
	"redcodegreencode/internal/repository"
)

func registerReq(teamName, password string) *model.RegisterRequest {
	return &model.RegisterRequest{
		TeamName: teamName,
		Password: password,
		M1Name:   "M1", M1Reg: "23BCE0001", M1Email: "m1@example.com",
		M2Name: "M2", M2Reg: "23BCE0002", M2Email: "m2@example.com",
	}
}

func newTeamService(t *testing.T) (*TeamService, *AuthService) {
	t.Helper()
	cfg := config.Load()
	authSvc := NewAuthService(cfg)
	gen := puzzle.New(rand.New(rand.NewSource(7)))
	return NewTeamService(repository.NewMemoryTeamRepo(), authSvc, gen), authSvc
}

func TestCheckTeam(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTeamService(t)

	resp, err := svc.CheckTeam(ctx, config.Load().AdminTeamName)
	if err != nil {
		t.Fatalf("check admin: %v", err)
	}
	if !resp.Exists || !resp.IsAdmin {
		t.Errorf("admin check = %+v, want exists+admin", resp)
	}

	resp, err = svc.CheckTeam(ctx, "nobody")
	if err != nil {
		t.Fatalf("check unknown: %v", err)
	}
	if resp.Exists || resp.IsAdmin {
		t.Errorf("unknown team check = %+v, want neither", resp)
	}

	registerTeam(t, svc, "Alpha")
	resp, err = svc.CheckTeam(ctx, "Alpha")
	if err != nil {
		t.Fatalf("check registered: %v", err)
	}
	if !resp.Exists || resp.IsAdmin {
		t.Errorf("registered team check = %+v, want exists only", resp)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, authSvc := newTeamService(t)
	cfg := config.Load()
	registerTeam(t, svc, "Alpha")

	t.Run("admin", func(t *testing.T) {
		resp, err := svc.Login(ctx, cfg.AdminTeamName, cfg.AdminPassword)
		if err != nil {
			t.Fatalf("admin login: %v", err)
		}
		if !resp.Success || !resp.IsAdmin || resp.Token == "" {
			t.Errorf("admin login = %+v", resp)
		}
		claims, err := authSvc.ValidateSessionToken(resp.Token)
		if err != nil {
			t.Fatalf("validate token: %v", err)
		}
		if !claims.IsAdmin {
			t.Error("admin token claims not admin")
		}
	})

	t.Run("team", func(t *testing.T) {
		resp, err := svc.Login(ctx, "Alpha", "pw")
		if err != nil {
			t.Fatalf("team login: %v", err)
		}
		if !resp.Success || resp.IsAdmin || resp.Player == nil {
			t.Errorf("team login = %+v", resp)
		}
		claims, err := authSvc.ValidateSessionToken(resp.Token)
		if err != nil {
			t.Fatalf("validate token: %v", err)
		}
		if claims.TeamName != "Alpha" || claims.IsAdmin {
			t.Errorf("claims = %+v", claims)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.Login(ctx, "Alpha", "nope"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown team", func(t *testing.T) {
		if _, err := svc.Login(ctx, "Ghost", "pw"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTeamService(t)

	team := registerTeam(t, svc, "Alpha")
	if team.ID == "" {
		t.Error("register assigned no ID")
	}
	if len(team.Round1Progress.Puzzles) != 3 || len(team.Round2Progress.Problems) != 3 {
		t.Errorf("register seeded %d puzzles, %d problems; want 3 and 3",
			len(team.Round1Progress.Puzzles), len(team.Round2Progress.Problems))
	}
	if team.Round1Progress.Lives != 3 || team.Round1Progress.SelectedModuleIndex != -1 {
		t.Errorf("round 1 defaults wrong: %+v", team.Round1Progress)
	}
	if team.Round2Progress.Status != "waiting" {
		t.Errorf("round 2 status = %q, want waiting", team.Round2Progress.Status)
	}

	for name, req := range map[string]struct{ teamName, password string }{
		"empty name":     {"", "pw"},
		"empty password": {"Beta", ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, registerReq(req.teamName, req.password))
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.Register(ctx, registerReq("Alpha", "other"))
		if !errors.Is(err, ErrDuplicateTeam) {
			t.Errorf("err = %v, want ErrDuplicateTeam", err)
		}
	})

	t.Run("admin name reserved", func(t *testing.T) {
		_, err := svc.Register(ctx, registerReq(config.Load().AdminTeamName, "pw"))
		if !errors.Is(err, ErrDuplicateTeam) {
			t.Errorf("err = %v, want ErrDuplicateTeam", err)
		}
	})
}

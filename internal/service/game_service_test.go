package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"redcodegreencode/internal/config"
	"redcodegreencode/internal/model"
	"redcodegreencode/internal/puzzle"
	"redcodegreencode/internal/repository"
)

type broadcastEvent struct {
	TeamID string // empty for broadcast-to-all
	Event  string
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (b *fakeBroadcaster) BroadcastToTeam(teamID string, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{TeamID: teamID, Event: event})
}

func (b *fakeBroadcaster) BroadcastAll(event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{Event: event})
}

func (b *fakeBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

func (b *fakeBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func newHarness(t *testing.T) (*GameService, *TeamService, repository.TeamRepo, *fakeBroadcaster) {
	t.Helper()

	repo := repository.NewMemoryTeamRepo()
	gen := puzzle.New(rand.New(rand.NewSource(42)))
	authSvc := NewAuthService(config.Load())
	teamSvc := NewTeamService(repo, authSvc, gen)

	gameSvc := NewGameService(repo, gen)
	bc := &fakeBroadcaster{}
	gameSvc.SetBroadcaster(bc)

	return gameSvc, teamSvc, repo, bc
}

func registerTeam(t *testing.T, teamSvc *TeamService, name string) *model.Team {
	t.Helper()
	team, err := teamSvc.Register(context.Background(), &model.RegisterRequest{
		TeamName: name,
		Password: "pw",
		M1Name:   "M1", M1Reg: "23BCE0001", M1Email: "m1@example.com",
		M2Name: "M2", M2Reg: "23BCE0002", M2Email: "m2@example.com",
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return team
}

func fetch(t *testing.T, repo repository.TeamRepo, id string) *model.Team {
	t.Helper()
	team, err := repo.FindTeam(context.Background(), id)
	if err != nil {
		t.Fatalf("find team: %v", err)
	}
	if team == nil {
		t.Fatalf("team %s disappeared", id)
	}
	return team
}

func TestRound1FullFlow(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, bc := newHarness(t)

	team := registerTeam(t, teamSvc, "Alpha")
	if len(team.Round1Progress.Puzzles) != 3 {
		t.Fatalf("registered team has %d puzzles, want 3", len(team.Round1Progress.Puzzles))
	}

	if err := gameSvc.AdminAction(ctx, 1, ActionStart); err != nil {
		t.Fatalf("admin start: %v", err)
	}

	got := fetch(t, repo, team.ID)
	if got.Round1Progress.Status != model.Round1Active || got.Round1Progress.StartTime == nil {
		t.Fatalf("start did not activate the team: %+v", got.Round1Progress)
	}

	// Solve puzzle 0.
	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 0, true); err != nil {
		t.Fatalf("submit 0: %v", err)
	}
	got = fetch(t, repo, team.ID)
	if got.Score != 100 {
		t.Errorf("score = %d, want 100", got.Score)
	}
	if !got.Round1Progress.Puzzles[0].Solved {
		t.Error("puzzle 0 not marked solved")
	}
	if got.Round1Progress.SelectedModuleIndex != -1 {
		t.Errorf("selectedModuleIndex = %d, want -1 after solve", got.Round1Progress.SelectedModuleIndex)
	}

	// Fail puzzle 1: one life lost, payload re-rolled, others untouched.
	beforeFail := fetch(t, repo, team.ID)
	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 1, false); err != nil {
		t.Fatalf("submit 1 fail: %v", err)
	}
	got = fetch(t, repo, team.ID)
	if got.Round1Progress.Lives != 2 {
		t.Errorf("lives = %d, want 2", got.Round1Progress.Lives)
	}
	if got.Round1Progress.Puzzles[1].Solved {
		t.Error("failed puzzle must stay unsolved")
	}
	if got.Round1Progress.Puzzles[1].PuzzleType != beforeFail.Round1Progress.Puzzles[1].PuzzleType {
		t.Error("regeneration must keep the puzzle kind")
	}
	if got.Score != 100 {
		t.Errorf("score changed on failure: %d", got.Score)
	}

	// Solve the rest: 3*100 + 200 completion bonus.
	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 1, true); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 2, true); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	got = fetch(t, repo, team.ID)
	if got.Score != 500 {
		t.Errorf("score = %d, want 500", got.Score)
	}
	if got.Round1Progress.Status != model.Round1Completed {
		t.Errorf("status = %q, want completed", got.Round1Progress.Status)
	}
	if got.Round1Progress.EndTime == nil {
		t.Fatal("completed team has no end time")
	}
	if got.Round1Progress.EndTime.Before(*got.Round1Progress.StartTime) {
		t.Error("endTime before startTime")
	}

	if bc.count(EventLeaderboardUpdate) == 0 {
		t.Error("submissions must rebroadcast the leaderboard")
	}
}

func TestSubmitSolvedPuzzleIsNoOp(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 0, true); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := fetch(t, repo, team.ID)

	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 0, true); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	after := fetch(t, repo, team.ID)

	if after.Score != before.Score {
		t.Errorf("score changed on resubmit: %d -> %d", before.Score, after.Score)
	}
	if after.Round1Progress.Lives != before.Round1Progress.Lives {
		t.Error("lives changed on resubmit")
	}
	if after.Round1Progress.Status != before.Round1Progress.Status {
		t.Error("status changed on resubmit")
	}
}

func TestSubmitInvalidIndexIsNoOp(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, bc := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")
	bc.reset()

	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 7, true); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := fetch(t, repo, team.ID)
	if got.Score != 0 || got.Round1Progress.Lives != 3 {
		t.Errorf("invalid index mutated the team: score=%d lives=%d", got.Score, got.Round1Progress.Lives)
	}
	if bc.count(EventTeamUpdate) != 0 || bc.count(EventLeaderboardUpdate) != 0 {
		t.Error("invalid index must not broadcast")
	}
}

func TestExplosionIsTerminal(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	for i := 0; i < 3; i++ {
		if err := gameSvc.SubmitPuzzle(ctx, team.ID, 0, false); err != nil {
			t.Fatalf("fail %d: %v", i, err)
		}
	}

	got := fetch(t, repo, team.ID)
	if got.Round1Progress.Lives != 0 {
		t.Errorf("lives = %d, want 0", got.Round1Progress.Lives)
	}
	if got.Round1Progress.Status != model.Round1Exploded {
		t.Fatalf("status = %q, want exploded", got.Round1Progress.Status)
	}
	if got.Round1Progress.EndTime == nil {
		t.Error("exploded team has no end time")
	}

	// Neither further failures nor successes move an exploded team.
	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 0, false); err != nil {
		t.Fatalf("post-explosion fail: %v", err)
	}
	if err := gameSvc.SubmitPuzzle(ctx, team.ID, 0, true); err != nil {
		t.Fatalf("post-explosion success: %v", err)
	}
	got = fetch(t, repo, team.ID)
	if got.Round1Progress.Status != model.Round1Exploded || got.Round1Progress.Lives != 0 || got.Score != 0 {
		t.Errorf("exploded team was resurrected: %+v score=%d", got.Round1Progress, got.Score)
	}
}

func TestResetBringsExplodedTeamBack(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	if err := gameSvc.SelectRole(ctx, team.ID, "member1", "defuser"); err != nil {
		t.Fatalf("select role: %v", err)
	}
	for i := 0; i < 3; i++ {
		gameSvc.SubmitPuzzle(ctx, team.ID, 0, false)
	}

	if err := gameSvc.ResetTeamBomb(ctx, team.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got := fetch(t, repo, team.ID)
	p := got.Round1Progress
	if p.Status != model.Round1Active || p.Lives != 3 || p.SelectedModuleIndex != -1 {
		t.Errorf("reset state wrong: %+v", p)
	}
	if p.EndTime != nil {
		t.Error("reset must clear endTime")
	}
	if p.StartTime == nil {
		t.Error("team-side reset falls back to now for startTime")
	}
	if p.RoleSelection.Member1 != "defuser" {
		t.Error("reset must preserve role selection")
	}
	for _, pz := range p.Puzzles {
		if pz.Solved {
			t.Error("reset puzzles must be unsolved")
		}
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)

	now := time.Now()
	setProgress := func(id string, solved int, exploded bool, elapsed time.Duration, lives int) {
		team := fetch(t, repo, id)
		start := now.Add(-elapsed)
		end := now
		team.Round1Progress.StartTime = &start
		team.Round1Progress.EndTime = &end
		team.Round1Progress.Lives = lives
		if exploded {
			team.Round1Progress.Status = model.Round1Exploded
		} else {
			team.Round1Progress.Status = model.Round1Active
		}
		for i := range team.Round1Progress.Puzzles {
			team.Round1Progress.Puzzles[i].Solved = i < solved
		}
		if err := repo.UpdateTeam(ctx, team); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	alive := registerTeam(t, teamSvc, "Alive")
	boom := registerTeam(t, teamSvc, "Boom")
	fast := registerTeam(t, teamSvc, "Fast")
	idle := registerTeam(t, teamSvc, "Idle")

	// Exploded with more solved still ranks below a living team.
	setProgress(alive.ID, 2, false, 300*time.Second, 3)
	setProgress(boom.ID, 3, true, 200*time.Second, 0)
	// Same solved count as Alive but faster.
	setProgress(fast.ID, 2, false, 200*time.Second, 3)
	// Never started: sorts last among the living.
	idleTeam := fetch(t, repo, idle.ID)
	idleTeam.Round1Progress.StartTime = nil
	idleTeam.Round1Progress.EndTime = nil
	if err := repo.UpdateTeam(ctx, idleTeam); err != nil {
		t.Fatalf("update idle: %v", err)
	}

	sorted, err := gameSvc.SortedLeaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}

	order := make([]string, len(sorted))
	for i, team := range sorted {
		order[i] = team.TeamName
	}
	want := []string{"Fast", "Alive", "Idle", "Boom"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLeaderboardLivesTiebreak(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)

	start := time.Now().Add(-100 * time.Second)
	end := start.Add(50 * time.Second)
	for _, tc := range []struct {
		name  string
		lives int
	}{{"TwoLives", 2}, {"ThreeLives", 3}} {
		team := registerTeam(t, teamSvc, tc.name)
		got := fetch(t, repo, team.ID)
		got.Round1Progress.StartTime = &start
		got.Round1Progress.EndTime = &end
		got.Round1Progress.Lives = tc.lives
		if err := repo.UpdateTeam(ctx, got); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	sorted, err := gameSvc.SortedLeaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if sorted[0].TeamName != "ThreeLives" {
		t.Errorf("lives tiebreak failed: first is %s", sorted[0].TeamName)
	}
}

func TestPauseResumePreservesElapsedTime(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	if err := gameSvc.AdminAction(ctx, 1, ActionStart); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := fetch(t, repo, team.ID)
	originalStart := *before.Round1Progress.StartTime

	// Simulate a pause that began 30 seconds ago.
	pausedAt := time.Now().Add(-30 * time.Second)
	gameSvc.stateMu.Lock()
	gameSvc.state.Round1.IsPaused = true
	gameSvc.state.Round1.PauseStartTime = &pausedAt
	gameSvc.stateMu.Unlock()

	if err := gameSvc.AdminAction(ctx, 1, ActionResume); err != nil {
		t.Fatalf("resume: %v", err)
	}

	after := fetch(t, repo, team.ID)
	shift := after.Round1Progress.StartTime.Sub(originalStart)
	if shift < 29*time.Second || shift > 31*time.Second {
		t.Errorf("startTime shifted by %v, want ~30s", shift)
	}

	state := gameSvc.GameState()
	if state.Round1.IsPaused || state.Round1.PauseStartTime != nil {
		t.Error("resume must clear the pause state")
	}
}

func TestAdminStopAwardsPartialCredit(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	if err := gameSvc.AdminAction(ctx, 1, ActionStart); err != nil {
		t.Fatalf("start: %v", err)
	}
	gameSvc.SubmitPuzzle(ctx, team.ID, 0, true)
	gameSvc.SubmitPuzzle(ctx, team.ID, 1, true)

	if err := gameSvc.AdminAction(ctx, 1, ActionStop); err != nil {
		t.Fatalf("stop: %v", err)
	}

	got := fetch(t, repo, team.ID)
	if got.Round1Progress.Status != model.Round1Completed {
		t.Errorf("status = %q, want completed", got.Round1Progress.Status)
	}
	if got.Round1Progress.EndTime == nil {
		t.Error("stopped team has no end time")
	}
	// 2*100 from submissions plus 2*100 solved credit at stop time.
	if got.Score != 400 {
		t.Errorf("score = %d, want 400", got.Score)
	}

	state := gameSvc.GameState()
	if state.Round1.IsStarted {
		t.Error("stop must clear isStarted")
	}
}

func TestAdminRestartRound1(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	gameSvc.SelectRole(ctx, team.ID, "member2", "giver")
	gameSvc.AdminAction(ctx, 1, ActionStart)
	gameSvc.SubmitPuzzle(ctx, team.ID, 0, true)
	gameSvc.SubmitPuzzle(ctx, team.ID, 1, false)

	if err := gameSvc.AdminAction(ctx, 1, ActionRestart); err != nil {
		t.Fatalf("restart: %v", err)
	}

	got := fetch(t, repo, team.ID)
	p := got.Round1Progress
	if got.Score != 0 {
		t.Errorf("score = %d, want 0 after restart", got.Score)
	}
	if p.Lives != 3 || p.Status != model.Round1Active || p.SelectedModuleIndex != -1 {
		t.Errorf("restart state wrong: %+v", p)
	}
	if len(p.Puzzles) != 3 {
		t.Fatalf("restart built %d puzzles, want 3", len(p.Puzzles))
	}
	for _, pz := range p.Puzzles {
		if pz.Solved {
			t.Error("restart puzzles must be unsolved")
		}
	}
	if p.RoleSelection.Member2 != "giver" {
		t.Error("restart must preserve role selection")
	}
	if p.StartTime == nil {
		t.Error("restart must set a new start time")
	}

	state := gameSvc.GameState()
	if !state.Round1.IsStarted || state.Round1.IsPaused {
		t.Error("restart must mark the round started")
	}
}

func TestRound2SolveFlow(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, _ := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	gameSvc.AdminAction(ctx, 2, ActionStart)

	got := fetch(t, repo, team.ID)
	if got.Round2Progress.Status != model.Round2Active {
		t.Fatalf("round 2 status = %q, want active", got.Round2Progress.Status)
	}

	for i := 0; i < 3; i++ {
		if err := gameSvc.SolveRound2Problem(ctx, team.ID, i, "fixed code"); err != nil {
			t.Fatalf("solve %d: %v", i, err)
		}
	}

	got = fetch(t, repo, team.ID)
	if got.Score != 800 { // 3*100 + 500 full-clear bonus
		t.Errorf("score = %d, want 800", got.Score)
	}
	if got.Round2Progress.Status != model.Round2Completed {
		t.Errorf("status = %q, want completed", got.Round2Progress.Status)
	}
	if got.Round2Progress.EndTime == nil {
		t.Error("completed round 2 has no end time")
	}
	for i, prob := range got.Round2Progress.Problems {
		if !prob.Solved || prob.Score != 100 {
			t.Errorf("problem %d: solved=%v score=%d", i, prob.Solved, prob.Score)
		}
	}

	// Re-submission after solved is a no-op.
	if err := gameSvc.SolveRound2Problem(ctx, team.ID, 0, "again"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if again := fetch(t, repo, team.ID); again.Score != 800 {
		t.Errorf("score changed on resubmission: %d", again.Score)
	}
}

func TestAwardRound2Marks(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, bc := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")
	bc.reset()

	if err := gameSvc.AwardRound2Marks(ctx, team.ID, "bugId", 7); err != nil {
		t.Fatalf("award bugId: %v", err)
	}
	if err := gameSvc.AwardRound2Marks(ctx, team.ID, "coord", 5); err != nil {
		t.Fatalf("award coord: %v", err)
	}

	got := fetch(t, repo, team.ID)
	if got.Round2Marks.BugID != 7 || got.Round2Marks.Coord != 5 {
		t.Errorf("marks = %+v", got.Round2Marks)
	}
	if got.Round2ManualScore != 12 {
		t.Errorf("manual score = %d, want 12", got.Round2ManualScore)
	}
	// Manual marks stay out of the aggregate score.
	if got.Score != 0 {
		t.Errorf("score = %d, want 0", got.Score)
	}

	if bc.count(EventLeaderboardUpdate) != 2 {
		t.Errorf("want 2 leaderboard updates, got %d", bc.count(EventLeaderboardUpdate))
	}
	if bc.count(EventTeamUpdate) != 0 {
		t.Error("marks must not broadcast a team update")
	}
}

func TestJoinTeamRegeneratesUnsolvedState(t *testing.T) {
	ctx := context.Background()
	gameSvc, teamSvc, repo, bc := newHarness(t)
	team := registerTeam(t, teamSvc, "Alpha")

	bc.reset()
	if err := gameSvc.JoinTeam(ctx, team.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if bc.count(EventTeamUpdate) != 1 {
		t.Error("join with nothing solved must push a regenerated team update")
	}
	got := fetch(t, repo, team.ID)
	if len(got.Round1Progress.Puzzles) != 3 {
		t.Fatalf("regenerated set has %d puzzles", len(got.Round1Progress.Puzzles))
	}

	// Once a puzzle is solved, rejoining must not wipe progress.
	gameSvc.SubmitPuzzle(ctx, team.ID, 0, true)
	bc.reset()
	if err := gameSvc.JoinTeam(ctx, team.ID); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if bc.count(EventTeamUpdate) != 0 {
		t.Error("join with progress must not regenerate")
	}
	got = fetch(t, repo, team.ID)
	if !got.Round1Progress.Puzzles[0].Solved {
		t.Error("solved progress lost on rejoin")
	}
}

func TestToggleLight(t *testing.T) {
	gameSvc, _, _, bc := newHarness(t)
	bc.reset()

	gameSvc.ToggleLight(model.LightRed)
	if gameSvc.GameState().Status != model.LightRed {
		t.Errorf("status = %q, want RED", gameSvc.GameState().Status)
	}
	if bc.count(EventGameUpdate) != 1 {
		t.Error("light toggle must broadcast the game state")
	}

	gameSvc.ToggleLight(model.LightGreen)
	if gameSvc.GameState().Status != model.LightGreen {
		t.Errorf("status = %q, want GREEN", gameSvc.GameState().Status)
	}
}

func TestHandlersIgnoreUnknownTeams(t *testing.T) {
	ctx := context.Background()
	gameSvc, _, _, bc := newHarness(t)
	bc.reset()

	if err := gameSvc.SubmitPuzzle(ctx, "ghost", 0, true); err != nil {
		t.Errorf("submit for unknown team errored: %v", err)
	}
	if err := gameSvc.SelectRole(ctx, "ghost", "member1", "defuser"); err != nil {
		t.Errorf("role select for unknown team errored: %v", err)
	}
	if err := gameSvc.ResetTeamBomb(ctx, "ghost"); err != nil {
		t.Errorf("reset for unknown team errored: %v", err)
	}
	if len(bc.events) != 0 {
		t.Errorf("unknown-team events must not broadcast, got %v", bc.events)
	}
}

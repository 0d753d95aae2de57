package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"redcodegreencode/internal/cache"
	"redcodegreencode/internal/model"
	"redcodegreencode/internal/puzzle"
	"redcodegreencode/internal/repository"
)

// Admin round actions
const (
	ActionStart   = "start"
	ActionPause   = "pause"
	ActionResume  = "resume"
	ActionStop    = "stop"
	ActionRestart = "restart"
)

// GameService is the process-wide authority over the global game state
// and every team's progress. All mutations go through its handlers and
// every handler ends by rebroadcasting the state it touched.
//
// Handlers touching one team serialize on a per-team mutex, so two
// concurrent submissions for the same team cannot race the
// read-modify-write. Bulk admin actions iterate teams without a
// spanning transaction and stay best-effort: a crash mid-iteration
// leaves a partially updated cohort.
type GameService struct {
	repo        repository.TeamRepo
	gen         *puzzle.Generator
	broadcaster Broadcaster
	leaderboard cache.LeaderboardCache

	stateMu sync.Mutex
	state   model.GlobalGameState

	locksMu   sync.Mutex
	teamLocks map[string]*sync.Mutex
}

// NewGameService creates the game state core with startup defaults
func NewGameService(repo repository.TeamRepo, gen *puzzle.Generator) *GameService {
	return &GameService{
		repo:      repo,
		gen:       gen,
		state:     *model.NewGlobalGameState(),
		teamLocks: make(map[string]*sync.Mutex),
	}
}

// SetBroadcaster sets the realtime fan-out
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetLeaderboardCache attaches the optional read-side snapshot cache
func (s *GameService) SetLeaderboardCache(c cache.LeaderboardCache) {
	s.leaderboard = c
}

// GameState returns a copy of the current global state
func (s *GameService) GameState() model.GlobalGameState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *GameService) teamLock(teamID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.teamLocks[teamID]
	if !ok {
		mu = &sync.Mutex{}
		s.teamLocks[teamID] = mu
	}
	return mu
}

func (s *GameService) publishGameState() {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastAll(EventGameUpdate, s.GameState())
}

func (s *GameService) publishTeam(team *model.Team) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToTeam(team.ID, EventTeamUpdate, team)
}

func (s *GameService) publishLeaderboard(ctx context.Context) {
	sorted, err := s.SortedLeaderboard(ctx)
	if err != nil {
		log.Printf("[LEADERBOARD] failed to compute snapshot: %v", err)
		return
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.SetSnapshot(ctx, sorted); err != nil {
			log.Printf("[LEADERBOARD] failed to cache snapshot: %v", err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastAll(EventLeaderboardUpdate, sorted)
	}
}

// JoinTeam runs when a connection subscribes to a team channel. If the
// team is active with nothing solved yet, the puzzle set is
// regenerated so a page refresh clears unsolved state.
func (s *GameService) JoinTeam(ctx context.Context, teamID string) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[JOIN] unknown team %s", teamID)
		return nil
	}

	if team.Round1Progress.Status == model.Round1Active && team.SolvedPuzzleCount() == 0 {
		team.Round1Progress.Puzzles = s.gen.Round1Set()
		if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
			"round1Progress.puzzles": team.Round1Progress.Puzzles,
		}); err != nil {
			return fmt.Errorf("failed to persist regenerated puzzles: %w", err)
		}
		s.publishTeam(team)
	}
	return nil
}

// ToggleLight sets the global red/green light. No caller validation
// happens here: only admin clients are trusted to invoke it.
func (s *GameService) ToggleLight(status string) {
	s.stateMu.Lock()
	s.state.Status = status
	s.stateMu.Unlock()
	s.publishGameState()
}

func (s *GameService) roundState(round int) *model.RoundState {
	if round == 1 {
		return &s.state.Round1
	}
	return &s.state.Round2
}

// AdminAction applies a global round control action
// (start/pause/resume/stop/restart) and rebroadcasts everything.
func (s *GameService) AdminAction(ctx context.Context, round int, action string) error {
	log.Printf("[ADMIN_ACTION] Round: %d, Action: %s", round, action)

	var err error
	switch action {
	case ActionStart:
		err = s.startRound(ctx, round)
	case ActionPause:
		s.pauseRound(round)
	case ActionResume:
		err = s.resumeRound(ctx, round)
	case ActionStop:
		err = s.stopRound(ctx, round)
	case ActionRestart:
		err = s.restartRound(ctx, round)
	default:
		return fmt.Errorf("unknown admin action %q", action)
	}
	if err != nil {
		return err
	}

	s.publishGameState()
	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}
	for _, team := range teams {
		s.publishTeam(team)
	}
	s.publishLeaderboard(ctx)
	return nil
}

func (s *GameService) startRound(ctx context.Context, round int) error {
	now := time.Now()

	s.stateMu.Lock()
	rs := s.roundState(round)
	rs.IsStarted = true
	rs.IsPaused = false
	rs.StartTime = &now
	s.stateMu.Unlock()

	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	for _, team := range teams {
		var fields map[string]interface{}
		if round == 1 {
			team.Round1Progress.Status = model.Round1Active
			team.Round1Progress.StartTime = &now
			fields = map[string]interface{}{"round1Progress": team.Round1Progress}
		} else {
			team.Round2Progress.Status = model.Round2Active
			team.Round2Progress.StartTime = &now
			fields = map[string]interface{}{"round2Progress": team.Round2Progress}
		}
		if err := s.repo.SetFields(ctx, team.ID, fields); err != nil {
			log.Printf("[ADMIN_ACTION] failed to start round %d for team %s: %v", round, team.ID, err)
		}
	}
	return nil
}

func (s *GameService) pauseRound(round int) {
	now := time.Now()
	s.stateMu.Lock()
	rs := s.roundState(round)
	rs.IsPaused = true
	rs.PauseStartTime = &now
	s.stateMu.Unlock()
}

// resumeRound shifts every active team's startTime forward by the
// pause duration, so elapsed-time arithmetic skips the paused window.
func (s *GameService) resumeRound(ctx context.Context, round int) error {
	now := time.Now()

	s.stateMu.Lock()
	rs := s.roundState(round)
	rs.IsPaused = false
	pauseStart := rs.PauseStartTime
	rs.PauseStartTime = nil
	s.stateMu.Unlock()

	if pauseStart == nil {
		return nil
	}
	pauseDuration := now.Sub(*pauseStart)

	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	for _, team := range teams {
		if round == 1 {
			p := &team.Round1Progress
			if p.Status != model.Round1Active || p.StartTime == nil {
				continue
			}
			shifted := p.StartTime.Add(pauseDuration)
			p.StartTime = &shifted
			if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{"round1Progress": *p}); err != nil {
				log.Printf("[ADMIN_ACTION] failed to shift start time for team %s: %v", team.ID, err)
			}
		} else {
			p := &team.Round2Progress
			if p.Status != model.Round2Active || p.StartTime == nil {
				continue
			}
			shifted := p.StartTime.Add(pauseDuration)
			p.StartTime = &shifted
			if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{"round2Progress": *p}); err != nil {
				log.Printf("[ADMIN_ACTION] failed to shift start time for team %s: %v", team.ID, err)
			}
		}
	}
	return nil
}

func (s *GameService) stopRound(ctx context.Context, round int) error {
	now := time.Now()

	s.stateMu.Lock()
	rs := s.roundState(round)
	rs.IsStarted = false
	rs.IsPaused = false
	s.stateMu.Unlock()

	s.publishGameState()

	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	for _, team := range teams {
		fields := map[string]interface{}{}
		if round == 1 {
			p := &team.Round1Progress
			if p.Status == model.Round1Active {
				p.Status = model.Round1Completed
				p.EndTime = &now

				// Teams cut off early still get credit for what they
				// finished, plus the full-clear bonus if all were solved.
				solved := team.SolvedPuzzleCount()
				team.Score += solved * 100
				if solved >= len(p.Puzzles) && len(p.Puzzles) > 0 {
					team.Score += 200
				}
			}
			fields["round1Progress"] = *p
		} else {
			p := &team.Round2Progress
			if p.Status == model.Round2Active || p.Status == model.Round2Waiting {
				p.Status = model.Round2Completed
				p.EndTime = &now
			}
			fields["round2Progress"] = *p
		}
		fields["score"] = team.Score

		if err := s.repo.SetFields(ctx, team.ID, fields); err != nil {
			log.Printf("[ADMIN_ACTION] failed to stop round %d for team %s: %v", round, team.ID, err)
		}
	}
	return nil
}

// restartRound rebuilds each team's round sub-document from scratch,
// preserving role selections. A round-1 restart also zeroes the score.
func (s *GameService) restartRound(ctx context.Context, round int) error {
	now := time.Now()

	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list teams: %w", err)
	}

	for _, team := range teams {
		fields := map[string]interface{}{}
		if round == 1 {
			team.Round1Progress = model.Round1Progress{
				Puzzles:             s.gen.Round1Set(),
				CurrentPuzzle:       0,
				SelectedModuleIndex: -1,
				RoleSelection:       team.Round1Progress.RoleSelection,
				Lives:               3,
				Status:              model.Round1Active,
				StartTime:           &now,
			}
			team.Score = 0
			fields["round1Progress"] = team.Round1Progress
			fields["score"] = 0
		} else {
			team.Round2Progress = model.Round2Progress{
				Problems:      s.gen.Round2Set(),
				RoleSelection: team.Round2Progress.RoleSelection,
				Status:        model.Round2Active,
				StartTime:     &now,
			}
			fields["round2Progress"] = team.Round2Progress
		}
		if err := s.repo.SetFields(ctx, team.ID, fields); err != nil {
			log.Printf("[ADMIN_ACTION] failed to restart round %d for team %s: %v", round, team.ID, err)
		}
	}

	s.stateMu.Lock()
	rs := s.roundState(round)
	rs.IsStarted = true
	rs.IsPaused = false
	rs.StartTime = &now
	rs.PauseStartTime = nil
	s.stateMu.Unlock()
	return nil
}

// SelectRole records one member's round-1 role choice
func (s *GameService) SelectRole(ctx context.Context, teamID, memberIdentifier, role string) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[SELECT_ROLE] unknown team %s", teamID)
		return nil
	}

	setMemberRole(&team.Round1Progress.RoleSelection, memberIdentifier, role)
	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round1Progress.roleSelection": team.Round1Progress.RoleSelection,
	}); err != nil {
		return fmt.Errorf("failed to persist role selection: %w", err)
	}

	s.publishTeam(team)
	return nil
}

// SelectRoleRound2 records one member's round-2 role choice
func (s *GameService) SelectRoleRound2(ctx context.Context, teamID, memberIdentifier, role string) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[SELECT_ROLE_R2] unknown team %s", teamID)
		return nil
	}

	setMemberRole(&team.Round2Progress.RoleSelection, memberIdentifier, role)
	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round2Progress.roleSelection": team.Round2Progress.RoleSelection,
	}); err != nil {
		return fmt.Errorf("failed to persist role selection: %w", err)
	}

	s.publishTeam(team)
	return nil
}

func setMemberRole(sel *model.RoleSelection, memberIdentifier, role string) {
	switch memberIdentifier {
	case "member1":
		sel.Member1 = role
	case "member2":
		sel.Member2 = role
	}
}

// StartRound1 is the per-team manual start path, distinct from the
// admin-wide start.
func (s *GameService) StartRound1(ctx context.Context, teamID string) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[START_R1] unknown team %s", teamID)
		return nil
	}

	now := time.Now()
	team.Round1Progress.StartTime = &now
	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round1Progress.startTime": now,
	}); err != nil {
		return fmt.Errorf("failed to persist start time: %w", err)
	}

	s.publishTeam(team)
	return nil
}

// SelectModule records which puzzle the defuser is looking at. The
// index is not validated against solved state; the client enforces
// that.
func (s *GameService) SelectModule(ctx context.Context, teamID string, moduleIndex int) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[SELECT_MODULE] unknown team %s", teamID)
		return nil
	}

	team.Round1Progress.SelectedModuleIndex = moduleIndex
	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round1Progress.selectedModuleIndex": moduleIndex,
	}); err != nil {
		return fmt.Errorf("failed to persist module selection: %w", err)
	}

	s.publishTeam(team)
	return nil
}

// SubmitPuzzle is the core round-1 scoring transition.
func (s *GameService) SubmitPuzzle(ctx context.Context, teamID string, puzzleIndex int, success bool) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[SUBMIT] unknown team %s", teamID)
		return nil
	}

	p := &team.Round1Progress
	if puzzleIndex < 0 || puzzleIndex >= len(p.Puzzles) {
		log.Printf("[ERROR] Invalid puzzle submission: teamId=%s, puzzleIndex=%d", teamID, puzzleIndex)
		return nil
	}
	// Exploded and completed are terminal; only an explicit reset
	// brings a team back.
	if p.Status != model.Round1Active {
		return nil
	}

	now := time.Now()
	if success {
		if !p.Puzzles[puzzleIndex].Solved {
			p.Puzzles[puzzleIndex].Solved = true
			p.SelectedModuleIndex = -1
			team.Score += 100

			if team.SolvedPuzzleCount() >= len(p.Puzzles) {
				p.Status = model.Round1Completed
				p.EndTime = &now
				team.Score += 200
			}
		}
	} else {
		p.Lives--
		if p.Lives <= 0 {
			p.Lives = 0
			p.Status = model.Round1Exploded
			p.EndTime = &now
		} else {
			pz := &p.Puzzles[puzzleIndex]
			pz.Data = s.gen.Payload(pz.PuzzleType)
		}
	}

	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round1Progress": *p,
		"score":          team.Score,
	}); err != nil {
		return fmt.Errorf("failed to persist submission: %w", err)
	}

	s.publishTeam(team)
	s.publishLeaderboard(ctx)
	return nil
}

// SolveRound2Problem marks a debugging problem solved. Re-submission
// of a solved problem is a no-op.
func (s *GameService) SolveRound2Problem(ctx context.Context, teamID string, problemIndex int, code string) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[SOLVE_R2] unknown team %s", teamID)
		return nil
	}

	p := &team.Round2Progress
	if problemIndex < 0 || problemIndex >= len(p.Problems) {
		log.Printf("[ERROR] Invalid problem submission: teamId=%s, problemIndex=%d", teamID, problemIndex)
		return nil
	}
	if p.Problems[problemIndex].Solved {
		return nil
	}

	p.Problems[problemIndex].Solved = true
	p.Problems[problemIndex].Score = 100
	team.Score += 100

	allSolved := true
	for _, prob := range p.Problems {
		if !prob.Solved {
			allSolved = false
			break
		}
	}
	if allSolved {
		now := time.Now()
		p.Status = model.Round2Completed
		p.EndTime = &now
		team.Score += 500
	}

	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round2Progress": *p,
		"score":          team.Score,
	}); err != nil {
		return fmt.Errorf("failed to persist solution: %w", err)
	}

	s.publishTeam(team)
	s.publishLeaderboard(ctx)
	return nil
}

// AwardRound2Marks records an admin-assigned manual mark. The manual
// sub-total stays separate from the aggregate score and never folds
// into the leaderboard ordering.
func (s *GameService) AwardRound2Marks(ctx context.Context, teamID, markType string, value int) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[AWARD_MARKS] unknown team %s", teamID)
		return nil
	}

	switch markType {
	case "bugId":
		team.Round2Marks.BugID = value
	case "coord":
		team.Round2Marks.Coord = value
	default:
		log.Printf("[AWARD_MARKS] unknown mark type %q", markType)
		return nil
	}
	team.Round2ManualScore = team.Round2Marks.BugID + team.Round2Marks.Coord

	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round2Marks":       team.Round2Marks,
		"round2ManualScore": team.Round2ManualScore,
	}); err != nil {
		return fmt.Errorf("failed to persist marks: %w", err)
	}

	s.publishLeaderboard(ctx)
	return nil
}

// ResetTeamBomb rebuilds one team's round-1 state with full lives,
// keeping role selections. Invoked from the team side.
func (s *GameService) ResetTeamBomb(ctx context.Context, teamID string) error {
	return s.resetRound1(ctx, teamID, true)
}

// AdminResetTeam is the admin-side reset for one team
func (s *GameService) AdminResetTeam(ctx context.Context, teamID string) error {
	return s.resetRound1(ctx, teamID, false)
}

func (s *GameService) resetRound1(ctx context.Context, teamID string, fallbackToNow bool) error {
	mu := s.teamLock(teamID)
	mu.Lock()
	defer mu.Unlock()

	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to look up team: %w", err)
	}
	if team == nil {
		log.Printf("[RESET] unknown team %s", teamID)
		return nil
	}

	s.stateMu.Lock()
	startTime := s.state.Round1.StartTime
	s.stateMu.Unlock()
	if startTime == nil && fallbackToNow {
		now := time.Now()
		startTime = &now
	}

	team.Round1Progress = model.Round1Progress{
		Puzzles:             s.gen.Round1Set(),
		CurrentPuzzle:       0,
		SelectedModuleIndex: -1,
		RoleSelection:       team.Round1Progress.RoleSelection,
		Lives:               3,
		Status:              model.Round1Active,
		StartTime:           startTime,
	}

	if err := s.repo.SetFields(ctx, team.ID, map[string]interface{}{
		"round1Progress": team.Round1Progress,
	}); err != nil {
		return fmt.Errorf("failed to persist reset: %w", err)
	}

	s.publishTeam(team)
	s.publishLeaderboard(ctx)
	return nil
}

// SortedLeaderboard computes the ranking snapshot: teams still alive
// rank before exploded ones, then more solved puzzles, then less
// elapsed time (teams that never started sort last), then more
// remaining lives.
func (s *GameService) SortedLeaderboard(ctx context.Context) ([]*model.Team, error) {
	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	elapsed := func(t *model.Team) time.Duration {
		p := t.Round1Progress
		if p.StartTime == nil {
			return math.MaxInt64
		}
		if p.EndTime != nil {
			return p.EndTime.Sub(*p.StartTime)
		}
		return now.Sub(*p.StartTime)
	}

	sort.SliceStable(teams, func(i, j int) bool {
		a, b := teams[i], teams[j]

		aAlive := a.Round1Progress.Status != model.Round1Exploded
		bAlive := b.Round1Progress.Status != model.Round1Exploded
		if aAlive != bAlive {
			return aAlive
		}

		aSolved := a.SolvedPuzzleCount()
		bSolved := b.SolvedPuzzleCount()
		if aSolved != bSolved {
			return aSolved > bSolved
		}

		aTime := elapsed(a)
		bTime := elapsed(b)
		if aTime != bTime {
			return aTime < bTime
		}

		return a.Round1Progress.Lives > b.Round1Progress.Lives
	})
	return teams, nil
}

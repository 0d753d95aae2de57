package model

import "time"

// Round 1 progress status values
const (
	Round1Active    = "active"
	Round1Completed = "completed"
	Round1Exploded  = "exploded"
)

// Round 2 progress status values
const (
	Round2Waiting   = "waiting"
	Round2Active    = "active"
	Round2Completed = "completed"
)

// Member is one of the two registered participants of a team
type Member struct {
	Name  string `json:"name" bson:"name"`
	RegNo string `json:"regNo" bson:"regNo"`
	Email string `json:"email" bson:"email"`
}

// RoleSelection maps each member slot to its chosen role.
// Round 1 roles are "defuser"/"giver", round 2 roles are
// "blind_coder"/"whisperer"; empty string means not chosen yet.
type RoleSelection struct {
	Member1 string `json:"member1" bson:"member1"`
	Member2 string `json:"member2" bson:"member2"`
}

// Round1Progress is the per-team bomb-defusal state
type Round1Progress struct {
	Puzzles             []Puzzle      `json:"puzzles" bson:"puzzles"`
	CurrentPuzzle       int           `json:"currentPuzzle" bson:"currentPuzzle"`
	SelectedModuleIndex int           `json:"selectedModuleIndex" bson:"selectedModuleIndex"` // -1 = none
	Lives               int           `json:"lives" bson:"lives"`
	Status              string        `json:"status" bson:"status"`
	StartTime           *time.Time    `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime             *time.Time    `json:"endTime,omitempty" bson:"endTime,omitempty"`
	RoleSelection       RoleSelection `json:"roleSelection" bson:"roleSelection"`
}

// Round2Progress is the per-team debugging-round state
type Round2Progress struct {
	Problems            []Problem     `json:"problems" bson:"problems"`
	RoleSelection       RoleSelection `json:"roleSelection" bson:"roleSelection"`
	CurrentProblemIndex int           `json:"currentProblemIndex" bson:"currentProblemIndex"`
	Status              string        `json:"status" bson:"status"`
	StartTime           *time.Time    `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime             *time.Time    `json:"endTime,omitempty" bson:"endTime,omitempty"`
}

// Round2Marks holds the admin-awarded manual scores (0-10 each)
type Round2Marks struct {
	BugID int `json:"bugId" bson:"bugId"`
	Coord int `json:"coord" bson:"coord"`
}

// Team is one registered two-person participant unit
type Team struct {
	ID                string         `json:"_id" bson:"_id,omitempty"`
	TeamName          string         `json:"teamName" bson:"teamName"`
	Password          string         `json:"password" bson:"password"`
	Member1           Member         `json:"member1" bson:"member1"`
	Member2           Member         `json:"member2" bson:"member2"`
	Round1Progress    Round1Progress `json:"round1Progress" bson:"round1Progress"`
	Round2Progress    Round2Progress `json:"round2Progress" bson:"round2Progress"`
	Round2Marks       Round2Marks    `json:"round2Marks" bson:"round2Marks"`
	Round2ManualScore int            `json:"round2ManualScore" bson:"round2ManualScore"`
	Score             int            `json:"score" bson:"score"`
	RegistrationTime  time.Time      `json:"registrationTime" bson:"registrationTime"`
}

// SolvedPuzzleCount returns how many round-1 puzzles are solved
func (t *Team) SolvedPuzzleCount() int {
	n := 0
	for _, p := range t.Round1Progress.Puzzles {
		if p.Solved {
			n++
		}
	}
	return n
}

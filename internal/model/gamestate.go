package model

import "time"

// Light status values for the global red light / green light signal
const (
	LightGreen = "GREEN"
	LightRed   = "RED"
)

// RoundState is the admin-controlled timing state of one round
type RoundState struct {
	IsStarted      bool       `json:"isStarted"`
	IsPaused       bool       `json:"isPaused"`
	StartTime      *time.Time `json:"startTime"`
	PauseStartTime *time.Time `json:"pauseStartTime"`
}

// GlobalGameState is the single process-wide event state shared by all
// teams. Created once at startup, mutated only by admin events, not
// persisted across restarts.
type GlobalGameState struct {
	Status string     `json:"status"`
	Round1 RoundState `json:"round1"`
	Round2 RoundState `json:"round2"`
}

// NewGlobalGameState returns the startup defaults
func NewGlobalGameState() *GlobalGameState {
	return &GlobalGameState{Status: LightGreen}
}

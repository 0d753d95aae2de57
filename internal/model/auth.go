package model

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are JWT claims issued on a successful login
type SessionClaims struct {
	TeamID   string `json:"teamId,omitempty"`
	TeamName string `json:"teamName"`
	IsAdmin  bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// CheckTeamRequest is the request body for the team-existence check
type CheckTeamRequest struct {
	TeamName string `json:"teamName"`
}

// CheckTeamResponse reports whether a name is registered or denotes
// the built-in admin principal
type CheckTeamResponse struct {
	Exists  bool `json:"exists"`
	IsAdmin bool `json:"isAdmin"`
}

// LoginRequest is the request body for team or admin login
type LoginRequest struct {
	TeamName string `json:"teamName"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Success bool   `json:"success"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token,omitempty"`
	Player  *Team  `json:"player,omitempty"`
}

// RegisterRequest is the flat registration form payload
type RegisterRequest struct {
	TeamName string `json:"teamName"`
	Password string `json:"password"`
	M1Name   string `json:"m1Name"`
	M1Reg    string `json:"m1Reg"`
	M1Email  string `json:"m1Email"`
	M2Name   string `json:"m2Name"`
	M2Reg    string `json:"m2Reg"`
	M2Email  string `json:"m2Email"`
}

// ExecuteRequest is the body of the code-execution proxy endpoint
type ExecuteRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

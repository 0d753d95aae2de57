package service

// Outbound realtime event names
const (
	EventGameUpdate        = "gameUpdate"
	EventTeamUpdate        = "teamUpdate"
	EventLeaderboardUpdate = "adminLeaderboardUpdate"
)

// Broadcaster is the realtime fan-out used by the game service
// (implemented by ws.Hub; an interface avoids the import cycle)
type Broadcaster interface {
	// BroadcastToTeam emits an event on one team's channel.
	BroadcastToTeam(teamID string, event string, payload interface{})
	// BroadcastAll emits an event to every connected client.
	BroadcastAll(event string, payload interface{})
}

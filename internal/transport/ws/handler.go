package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"redcodegreencode/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	handlerTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Inbound event names
const (
	evtJoinTeam         = "joinTeam"
	evtToggleRedLight   = "toggleRedLight"
	evtAdminAction      = "adminAction"
	evtSelectRole       = "selectRole"
	evtSelectRoleRound2 = "selectRoleRound2"
	evtResetTeamBomb    = "resetTeamBomb"
	evtStartRound1      = "startRound1"
	evtSelectModule     = "selectModule"
	evtSubmitPuzzle     = "submitPuzzle"
	evtSolveRound2      = "solveRound2Problem"
	evtAwardRound2Marks = "awardRound2Marks"
	evtAdminResetTeam   = "adminResetTeam"
)

// Handler accepts WebSocket connections and translates inbound events
// into game service calls.
type Handler struct {
	hub     *Hub
	gameSvc *service.GameService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, gameSvc *service.GameService) *Handler {
	return &Handler{
		hub:     hub,
		gameSvc: gameSvc,
	}
}

// ServeWS handles GET /ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		ID:   uuid.New().String()[:8],
		Send: make(chan []byte, 256),
		Hub:  h.hub,
	}

	h.hub.Register(conn)

	// Every client gets the current global state on connect.
	h.hub.SendTo(conn, service.EventGameUpdate, h.gameSvc.GameState())

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Malformed message from %s: %v", conn.ID, err)
			continue
		}
		h.dispatch(conn, &msg)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// teamIDPayload decodes events whose payload is either a bare team ID
// string or an object with a teamId field.
func teamIDPayload(payload json.RawMessage) string {
	var id string
	if err := json.Unmarshal(payload, &id); err == nil {
		return id
	}
	var obj struct {
		TeamID string `json:"teamId"`
	}
	if err := json.Unmarshal(payload, &obj); err == nil {
		return obj.TeamID
	}
	return ""
}

func (h *Handler) dispatch(conn *Connection, msg *Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case evtJoinTeam:
		teamID := teamIDPayload(msg.Payload)
		if teamID == "" {
			return
		}
		h.hub.Subscribe(conn, teamID)
		err = h.gameSvc.JoinTeam(ctx, teamID)

	case evtToggleRedLight:
		var p struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		h.gameSvc.ToggleLight(p.Status)

	case evtAdminAction:
		var p struct {
			Round  int    `json:"round"`
			Action string `json:"action"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		err = h.gameSvc.AdminAction(ctx, p.Round, p.Action)

	case evtSelectRole, evtSelectRoleRound2:
		var p struct {
			TeamID           string `json:"teamId"`
			MemberIdentifier string `json:"memberIdentifier"`
			Role             string `json:"role"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if msg.Type == evtSelectRole {
			err = h.gameSvc.SelectRole(ctx, p.TeamID, p.MemberIdentifier, p.Role)
		} else {
			err = h.gameSvc.SelectRoleRound2(ctx, p.TeamID, p.MemberIdentifier, p.Role)
		}

	case evtResetTeamBomb:
		err = h.gameSvc.ResetTeamBomb(ctx, teamIDPayload(msg.Payload))

	case evtStartRound1:
		err = h.gameSvc.StartRound1(ctx, teamIDPayload(msg.Payload))

	case evtSelectModule:
		var p struct {
			TeamID      string `json:"teamId"`
			ModuleIndex int    `json:"moduleIndex"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		err = h.gameSvc.SelectModule(ctx, p.TeamID, p.ModuleIndex)

	case evtSubmitPuzzle:
		var p struct {
			TeamID      string `json:"teamId"`
			PuzzleIndex int    `json:"puzzleIndex"`
			Success     bool   `json:"success"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		err = h.gameSvc.SubmitPuzzle(ctx, p.TeamID, p.PuzzleIndex, p.Success)

	case evtSolveRound2:
		var p struct {
			TeamID       string `json:"teamId"`
			ProblemIndex int    `json:"problemIndex"`
			Code         string `json:"code"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		err = h.gameSvc.SolveRound2Problem(ctx, p.TeamID, p.ProblemIndex, p.Code)

	case evtAwardRound2Marks:
		var p struct {
			TeamID string `json:"teamId"`
			Type   string `json:"type"`
			Value  int    `json:"value"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		err = h.gameSvc.AwardRound2Marks(ctx, p.TeamID, p.Type, p.Value)

	case evtAdminResetTeam:
		err = h.gameSvc.AdminResetTeam(ctx, teamIDPayload(msg.Payload))

	default:
		log.Printf("Unknown event %q from %s", msg.Type, conn.ID)
		return
	}

	// The channel has no response path; failed handlers are logged and
	// their broadcast skipped.
	if err != nil {
		log.Printf("Event %s failed: %v", msg.Type, err)
	}
}

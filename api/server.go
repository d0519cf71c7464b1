package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/unoroom/game/room"
	"github.com/wricardo/mcp-training/unoroom/game/service"
	"github.com/wricardo/mcp-training/unoroom/transport/websocket"
)

// Identity headers. The caller is trusted to have authenticated the player
// upstream.
const (
	HeaderPlayerID   = "X-Player-ID"
	HeaderPlayerName = "X-Player-Name"
)

// Server represents the REST API server
type Server struct {
	service  service.GameService
	hub      *websocket.Hub
	commands *CommandHandler
	router   *mux.Router
	logger   *zap.Logger
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service:  gameService,
		hub:      hub,
		commands: NewCommandHandler(gameService, logger),
		router:   mux.NewRouter(),
		logger:   logger,
	}
	if hub != nil {
		hub.SetErrorClassifier(func(err error) string { return string(room.KindOf(err)) })
	}

	s.setupRoutes()
	return s
}

// Router exposes the router so callers can mount extra endpoints.
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Lobby
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}/join", s.handleJoinRoom).Methods("POST")

	// Game operations
	api.HandleFunc("/rooms/{id}/start", s.handleStartRoom).Methods("POST")
	api.HandleFunc("/rooms/{id}/play", s.handlePlayCard).Methods("POST")
	api.HandleFunc("/rooms/{id}/draw", s.handleDrawCard).Methods("POST")
	api.HandleFunc("/rooms/{id}/leave", s.handleLeaveRoom).Methods("POST")
	api.HandleFunc("/rooms/{id}/rematch", s.handleRematch).Methods("POST")
	api.HandleFunc("/rooms/{id}/chat", s.handleChat).Methods("POST")
	api.HandleFunc("/rooms/{id}/view", s.handleGetView).Methods("GET")

	// Configuration
	api.HandleFunc("/rules", s.handleListRules).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure reports a command error with the status matching its kind.
func respondFailure(w http.ResponseWriter, err error) {
	kind := room.KindOf(err)
	respondJSON(w, statusFor(kind), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func statusFor(kind room.Kind) int {
	switch kind {
	case room.KindNotFound:
		return http.StatusNotFound
	case room.KindPlayerNotInRoom, room.KindNotRoomOwner:
		return http.StatusForbidden
	case room.KindPasscodeTaken, room.KindAlreadyStarted, room.KindRoomFull,
		room.KindNotYourTurn, room.KindNotPlaying, room.KindGameNotFinished,
		room.KindOutOfCards:
		return http.StatusConflict
	case room.KindIllegalMove, room.KindColorRequired, room.KindInvalidCardIndex,
		room.KindNotEnoughPlayers:
		return http.StatusUnprocessableEntity
	case room.KindInvalidPasscode, room.KindInvalidCommand:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// actorFrom reads the caller identity from the request headers.
func actorFrom(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	id := strings.TrimSpace(r.Header.Get(HeaderPlayerID))
	if id == "" {
		respondError(w, http.StatusBadRequest, HeaderPlayerID+" header required")
		return service.Actor{}, false
	}
	name := strings.TrimSpace(r.Header.Get(HeaderPlayerName))
	if name == "" {
		name = id
	}
	return service.Actor{ID: id, DisplayName: name}, true
}

// Lobby Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.service.ListRooms(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]room.Summary, 0, len(rooms))
		for _, sum := range rooms {
			if string(sum.Status) == status {
				filtered = append(filtered, sum)
			}
		}
		rooms = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.GetRoom(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req service.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	v, err := s.service.CreateRoom(r.Context(), actor, req)
	if err != nil {
		respondFailure(w, err)
		return
	}

	s.logger.Info("Room created over REST", zap.String("room_id", v.RoomID), zap.String("player_id", actor.ID))
	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	v, err := s.service.JoinRoom(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, v)
}

// Game Operation Handlers

func (s *Server) handleStartRoom(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	v, err := s.service.StartRoom(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, v)
}

func (s *Server) handlePlayCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req struct {
		CardIndex   *int   `json:"card_index"`
		ChosenColor string `json:"chosen_color,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CardIndex == nil {
		respondError(w, http.StatusBadRequest, "card_index is required")
		return
	}

	out, err := s.service.PlayCard(r.Context(), actor, mux.Vars(r)["id"], *req.CardIndex, req.ChosenColor)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDrawCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	out, err := s.service.DrawCard(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	out, err := s.service.LeaveRoom(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleRematch(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	v, err := s.service.RequestRematch(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.Chat(r.Context(), actor, mux.Vars(r)["id"], req.Message); err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "sent"})
}

// Game State Handlers

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	v, err := s.service.GetView(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, v)
}

// Configuration Handlers

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.service.ListRules(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket transport disabled")
		return
	}

	query := r.URL.Query()
	playerID := strings.TrimSpace(query.Get("player"))
	if playerID == "" {
		http.Error(w, "player parameter required", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(query.Get("name"))
	if name == "" {
		name = playerID
	}

	s.hub.ServeWS(w, r, playerID, name, s.commands)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

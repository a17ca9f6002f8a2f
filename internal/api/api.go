// Package api provides the HTTP surface of the Duskcourt game server.
//
// @title Duskcourt API
// @version 1.0
// @description Authoritative server for a social-deduction night-resolution game.
// @description Supports real-time WebSocket connections, per-room event logs and replayable snapshots.
//
// @contact.name API Support
// @contact.url https://github.com/duskcourt/server
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter 'Bearer {token}' to authorize
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/duskcourt/server/internal/auth"
	"github.com/duskcourt/server/internal/realtime"
	"github.com/duskcourt/server/internal/room"
	"github.com/duskcourt/server/internal/store"
)

type contextKey string

const userIDKey contextKey = "user_id"

type Server struct {
	Router  *chi.Mux
	store   *store.Store
	jwt     *auth.JWTManager
	roomMgr *room.RoomManager
	logger  *zap.Logger
}

func NewServer(st *store.Store, jwt *auth.JWTManager, roomMgr *room.RoomManager, wsServer *realtime.WSServer, logger *zap.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
	}))

	s := &Server{
		Router:  r,
		store:   st,
		jwt:     jwt,
		roomMgr: roomMgr,
		logger:  logger,
	}

	// Health & Metrics
	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Auth endpoints
	r.Post("/v1/auth/register", s.register)
	r.Post("/v1/auth/login", s.login)
	r.Post("/v1/auth/quick", s.quickLogin)

	// Room endpoints (protected)
	r.Route("/v1/rooms", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/", s.createRoom)
		r.Post("/{room_id}/join", s.joinRoom)
		r.Get("/{room_id}/events", s.fetchEvents)
		r.Get("/{room_id}/state", s.fetchState)
	})

	// WebSocket endpoint
	r.Handle("/ws", wsServer)
	return s
}

// health godoc
// @Summary Health check endpoint
// @Description Returns server health status
// @Tags System
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /health [get]
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"password123"`
}

// AuthResponse represents the authentication response.
type AuthResponse struct {
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
	UserID string `json:"user_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// register godoc
// @Summary Register a new user
// @Description Create a new user account and return JWT token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 200 {object} AuthResponse
// @Failure 400 {string} string "invalid json"
// @Failure 409 {string} string "user exists or db error"
// @Router /v1/auth/register [post]
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "hash error", http.StatusInternalServerError)
		return
	}
	u := store.User{ID: uuid.NewString(), Email: req.Email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		http.Error(w, "user exists or db error", http.StatusConflict)
		return
	}
	token, _ := s.jwt.Generate(u.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, UserID: u.ID})
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"password123"`
}

// login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {string} string "invalid json"
// @Failure 401 {string} string "invalid credentials"
// @Router /v1/auth/login [post]
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	u, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, _ := s.jwt.Generate(u.ID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{Token: token, UserID: u.ID})
}

// QuickLoginRequest represents a quick login with just a display name.
type QuickLoginRequest struct {
	Name string `json:"name" example:"Alice"`
}

// QuickLoginResponse represents the quick login response.
type QuickLoginResponse struct {
	Token  string `json:"token" example:"eyJhbGciOiJIUzI1NiIs..."`
	UserID string `json:"user_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name   string `json:"name" example:"Alice"`
}

// quickLogin godoc
// @Summary Quick login with just a display name
// @Description Create a temporary user with a display name and return JWT token (no password needed)
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body QuickLoginRequest true "Display name"
// @Success 200 {object} QuickLoginResponse
// @Failure 400 {string} string "invalid json or empty name"
// @Router /v1/auth/quick [post]
func (s *Server) quickLogin(w http.ResponseWriter, r *http.Request) {
	var req QuickLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	userID := uuid.NewString()
	uniqueEmail := userID + "@quick.local"
	u := store.User{ID: userID, Email: uniqueEmail, PasswordHash: "", CreatedAt: time.Now().UTC()}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	token, _ := s.jwt.Generate(userID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(QuickLoginResponse{Token: token, UserID: userID, Name: req.Name})
}

// CreateRoomRequest carries the optional display name the creator
// wants at the table.
type CreateRoomRequest struct {
	Name string `json:"name" example:"Alice"`
}

// CreateRoomResponse represents the room creation response.
type CreateRoomResponse struct {
	RoomID string `json:"room_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// createRoom godoc
// @Summary Create a new game room
// @Description Create a new game room; the creator becomes the host
// @Tags Rooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateRoomRequest false "Room options"
// @Success 200 {object} CreateRoomResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "db error"
// @Router /v1/rooms [post]
func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	var req CreateRoomRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	rm := store.Room{ID: uuid.NewString(), CreatedBy: userID, HostUserID: userID, Status: "lobby", CreatedAt: time.Now().UTC()}
	if err := s.store.CreateRoom(r.Context(), rm); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	name := req.Name
	if name == "" {
		name = "host"
	}
	_ = s.store.AddRoomMember(r.Context(), store.RoomMember{RoomID: rm.ID, UserID: userID, DisplayName: name, Role: "host", Joined: time.Now().UTC()})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CreateRoomResponse{RoomID: rm.ID})
}

// JoinRoomRequest carries the display name to sit down with.
type JoinRoomRequest struct {
	Name string `json:"name" example:"Bob"`
}

// JoinRoomResponse represents the join room response.
type JoinRoomResponse struct {
	Status string `json:"status" example:"joined"`
}

// joinRoom godoc
// @Summary Join an existing game room
// @Description Join a game room as a player; seats map to join order
// @Tags Rooms
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param request body JoinRoomRequest false "Join options"
// @Success 200 {object} JoinRoomResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 500 {string} string "failed to join room"
// @Router /v1/rooms/{room_id}/join [post]
func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	roomID := chi.URLParam(r, "room_id")
	var req JoinRoomRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	name := req.Name
	if name == "" {
		name = "player"
	}
	if err := s.store.AddRoomMember(r.Context(), store.RoomMember{RoomID: roomID, UserID: userID, DisplayName: name, Role: "player", Joined: time.Now().UTC()}); err != nil {
		http.Error(w, "failed to join room", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(JoinRoomResponse{Status: "joined"})
}

// fetchEvents godoc
// @Summary Fetch room events
// @Description Retrieve projected events for state synchronization (supports after_seq incremental sync)
// @Tags Events
// @Security BearerAuth
// @Produce json
// @Param room_id path string true "Room ID"
// @Param after_seq query integer false "Fetch events after this sequence number"
// @Success 200 {array} types.ProjectedEvent
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /v1/rooms/{room_id}/events [get]
func (s *Server) fetchEvents(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	roomID := chi.URLParam(r, "room_id")
	afterSeq := int64(0)
	if q := r.URL.Query().Get("after_seq"); q != "" {
		afterSeq, _ = strconv.ParseInt(q, 10, 64)
	}
	ok, _, _ := s.store.IsMember(r.Context(), roomID, userID)
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	ra, err := s.roomMgr.GetOrCreate(r.Context(), roomID)
	if err != nil {
		http.Error(w, "room error", http.StatusInternalServerError)
		return
	}
	events, _ := s.store.LoadEventsAfter(r.Context(), roomID, afterSeq, 200)
	out := make([]any, 0, len(events))
	for _, e := range events {
		if pe, visible := ra.ReplayEvent(e, userID); visible {
			out = append(out, pe)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// fetchState godoc
// @Summary Fetch room state
// @Description Retrieve current game state with visibility projection based on the viewer's seat
// @Tags State
// @Security BearerAuth
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {object} projection.StateView
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "game not started"
// @Router /v1/rooms/{room_id}/state [get]
func (s *Server) fetchState(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	roomID := chi.URLParam(r, "room_id")
	ok, role, _ := s.store.IsMember(r.Context(), roomID, userID)
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	ra, err := s.roomMgr.GetOrCreate(r.Context(), roomID)
	if err != nil {
		http.Error(w, "room error", http.StatusInternalServerError)
		return
	}
	view := ra.StateFor(userID, role == "host")
	if view == nil {
		http.Error(w, "game not started", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < 8 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		tokenStr := authHeader[7:]
		claims, err := s.jwt.Parse(tokenStr)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Package realtime pushes enrollment and catalog events to connected staff
// dashboards over Socket.IO.
package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	socket "github.com/zishang520/socket.io/socket"
	"gorm.io/gorm"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	jwtutil "github.com/mo-amir99/course-enrollment-server/internal/utils/jwt"
)

// AdminsRoom receives every published event.
const AdminsRoom socket.Room = "admins"

const heartbeatInterval = 30 * time.Second

var (
	errMissingToken = errors.New("missing authentication token")
	errNotStaff     = errors.New("only staff may subscribe to live events")
)

// Server wraps the Socket.IO server and implements course.Publisher.
type Server struct {
	io        *socket.Server
	db        *gorm.DB
	logger    *slog.Logger
	jwtSecret string

	heartbeatStop chan struct{}
	heartbeatWG   sync.WaitGroup

	connMutex   sync.RWMutex
	connections map[string]*socket.Socket
}

// NewServer creates the Socket.IO server mounted at /socket.io.
func NewServer(db *gorm.DB, logger *slog.Logger, jwtSecret string) *Server {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(60 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetServeClient(false)
	opts.SetPath("/socket.io")

	s := &Server{
		io:          socket.NewServer(nil, opts),
		db:          db,
		logger:      logger,
		jwtSecret:   jwtSecret,
		connections: make(map[string]*socket.Socket),
	}

	s.setupEventHandlers()
	s.startHeartbeat()

	return s
}

// GetHandler returns the HTTP handler for Socket.IO.
func (s *Server) GetHandler() http.Handler {
	return s.io.ServeHandler(nil)
}

// Publish emits event to the admins room.
func (s *Server) Publish(event string, payload interface{}) {
	if err := s.io.To(AdminsRoom).Emit(event, payload); err != nil {
		s.logger.Warn("failed to publish event", slog.String("event", event), slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("event published", slog.String("event", event))
}

// Connections returns the number of connected sockets.
func (s *Server) Connections() int {
	s.connMutex.RLock()
	defer s.connMutex.RUnlock()
	return len(s.connections)
}

// Close shuts down the Socket.IO server.
func (s *Server) Close() error {
	if stop := s.heartbeatStop; stop != nil {
		close(stop)
		s.heartbeatWG.Wait()
		s.heartbeatStop = nil
	}

	done := make(chan struct{})
	s.io.Close(func() {
		close(done)
	})

	<-done
	return nil
}

func (s *Server) setupEventHandlers() {
	s.io.Use(s.connectionMiddleware)
	s.io.On("connection", func(args ...any) {
		sock, ok := args[0].(*socket.Socket)
		if !ok {
			s.logger.Error("unexpected connection payload", slog.Any("payload", args))
			return
		}
		s.handleConnection(sock)
	})
}

func (s *Server) connectionMiddleware(sock *socket.Socket, next func(*socket.ExtendedError)) {
	usr, code, err := s.authenticate(extractToken(sock))
	if err != nil {
		s.logger.Warn("socket connection rejected", slog.String("code", code), slog.String("error", err.Error()))
		next(socket.NewExtendedError(err.Error(), map[string]any{"code": code}))
		return
	}

	sock.SetData(&usr)
	next(nil)
}

// authenticate resolves token to a staff user. code is the client-facing
// rejection code.
func (s *Server) authenticate(token string) (usr user.User, code string, err error) {
	if token == "" {
		return usr, "MISSING_TOKEN", errMissingToken
	}

	claims, err := jwtutil.VerifyToken(token, s.jwtSecret)
	if err != nil {
		return usr, "INVALID_TOKEN", err
	}

	usr, err = user.Get(s.db, claims.UserID)
	if err != nil {
		return usr, "USER_NOT_FOUND", err
	}

	if decision := authz.Authorize(usr.Subject(), authz.AdminAccess, authz.Resource{}); !decision.Allowed {
		return usr, "FORBIDDEN", errNotStaff
	}
	return usr, "", nil
}

func (s *Server) handleConnection(sock *socket.Socket) {
	usr := userFromSocket(sock)
	if usr == nil {
		s.logger.Error("connection established without user context")
		sock.Disconnect(true)
		return
	}

	s.connMutex.Lock()
	s.connections[string(sock.Id())] = sock
	s.connMutex.Unlock()

	sock.Join(AdminsRoom)
	sock.Join(userRoom(usr.ID.String()))

	s.logger.Info("socket connected",
		slog.String("user_id", usr.ID.String()),
		slog.String("username", usr.Username),
		slog.String("conn_id", string(sock.Id())),
	)

	if err := sock.Emit("connectionConfirmed", map[string]any{
		"userId":    usr.ID.String(),
		"username":  usr.Username,
		"role":      usr.Role,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.logger.Warn("failed to emit connection confirmation", slog.String("error", err.Error()))
	}

	sock.On("pong", func(args ...any) {
		if len(args) > 0 {
			s.logger.Debug("pong received", slog.Any("value", args[0]))
		}
	})

	sock.On("disconnect", func(args ...any) {
		reason := "client"
		if len(args) > 0 {
			if r, ok := args[0].(string); ok {
				reason = r
			}
		}
		s.handleDisconnect(sock, reason)
	})
}

func (s *Server) handleDisconnect(sock *socket.Socket, reason string) {
	s.connMutex.Lock()
	delete(s.connections, string(sock.Id()))
	s.connMutex.Unlock()

	if usr := userFromSocket(sock); usr != nil {
		s.logger.Info("socket disconnected",
			slog.String("user_id", usr.ID.String()),
			slog.String("reason", reason),
		)
	}
}

func (s *Server) startHeartbeat() {
	s.heartbeatStop = make(chan struct{})
	s.heartbeatWG.Add(1)

	go func() {
		defer s.heartbeatWG.Done()
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sendHeartbeat()
			case <-s.heartbeatStop:
				return
			}
		}
	}()
}

func (s *Server) sendHeartbeat() {
	timestamp := time.Now().Unix()

	s.connMutex.RLock()
	defer s.connMutex.RUnlock()

	for id, sock := range s.connections {
		if err := sock.Emit("ping", timestamp); err != nil {
			s.logger.Debug("heartbeat emit failed", slog.String("conn_id", id), slog.String("error", err.Error()))
		}
	}
}

func userFromSocket(sock *socket.Socket) *user.User {
	if sock == nil {
		return nil
	}
	if data, ok := sock.Data().(*user.User); ok {
		return data
	}
	return nil
}

// extractToken reads the JWT from the handshake auth payload, falling back
// to the "token" query parameter.
func extractToken(sock *socket.Socket) string {
	if sock == nil {
		return ""
	}

	if hs := sock.Handshake(); hs != nil {
		if token := tokenFromAuth(hs.Auth); token != "" {
			return token
		}
		if hs.Query != nil {
			if token, ok := hs.Query.Get("token"); ok && token != "" {
				return token
			}
		}
	}
	return ""
}

func tokenFromAuth(auth any) string {
	authMap, ok := auth.(map[string]any)
	if !ok {
		return ""
	}
	switch v := authMap["token"].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func userRoom(userID string) socket.Room {
	return socket.Room("user_" + userID)
}

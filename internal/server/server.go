package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lotas/ctxkeep/internal/applog"
	"nhooyr.io/websocket"
)

// DefaultPort is the port the extension connects to.
const DefaultPort = 19292

// ErrNotConnected is returned when no extension is connected.
var ErrNotConnected = errors.New("extension not connected")

// IncomingMsg is a message from the extension.
type IncomingMsg struct {
	Type string          `json:"type"` // snapshot, response, command
	Tab  json.RawMessage `json:"tab,omitempty"`
	Tabs json.RawMessage `json:"tabs,omitempty"`
	// Window is set on create-window responses.
	Window json.RawMessage `json:"window,omitempty"`
	// Request carries a command.Request on "command" messages.
	Request json.RawMessage `json:"request,omitempty"`
	// Response fields
	ID    string `json:"id,omitempty"`
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`
}

// OutgoingMsg is a message to the extension: a browser command, or the
// reply to a popup command.
type OutgoingMsg struct {
	ID       string `json:"id"`
	Action   string `json:"action"`
	TabID    int    `json:"tabId,omitempty"`
	WindowID int    `json:"windowId,omitempty"`
	URL      string `json:"url,omitempty"`
	Active   *bool  `json:"active,omitempty"`
	// Response is the dispatcher result for Action "response".
	Response any `json:"response,omitempty"`
}

// CommandHandler answers a popup command. The returned value is sent back
// as the Response of an OutgoingMsg with the command's id.
type CommandHandler func(ctx context.Context, request json.RawMessage) any

// Server manages the WebSocket connection to the extension.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	ready   chan struct{} // closed while a connection is up

	pending map[string]chan IncomingMsg
	seq     atomic.Uint64
	handler CommandHandler

	// Timeout bounds Call when the context has no deadline.
	Timeout time.Duration
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port:    port,
		msgs:    make(chan IncomingMsg, 64),
		ready:   make(chan struct{}),
		pending: make(map[string]chan IncomingMsg),
		Timeout: 10 * time.Second,
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of unsolicited messages from the extension.
// Responses to Call and handled commands are not delivered here.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// HandleCommands routes "command" messages to h.
func (s *Server) HandleCommands(h CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// WaitConnected blocks until an extension is connected or ctx is done.
func (s *Server) WaitConnected(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotConnected, ctx.Err())
	}
}

// Send sends a message to the connected extension.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	applog.Info("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Call sends msg and waits for the response carrying the same id. An empty
// msg.ID is filled in. A response with ok=false becomes an error.
func (s *Server) Call(ctx context.Context, msg OutgoingMsg) (IncomingMsg, error) {
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("%s-%d", msg.Action, s.seq.Add(1))
	}
	if _, ok := ctx.Deadline(); !ok && s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	ch := make(chan IncomingMsg, 1)
	s.mu.Lock()
	s.pending[msg.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.Send(msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("send %s: %w", msg.Action, err)
	}

	select {
	case resp := <-ch:
		if resp.OK != nil && !*resp.OK {
			return resp, fmt.Errorf("%s failed: %s", msg.Action, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		return IncomingMsg{}, fmt.Errorf("timed out waiting for %s response: %w", msg.Action, ctx.Err())
	}
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("websocket accept: %v", err)
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(16 << 20) // 16 MB

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced")
			s.conn.CloseNow()
		} else {
			close(s.ready)
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
				s.connCtx = nil
				s.ready = make(chan struct{})
			}
			s.mu.Unlock()
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			applog.Info("ws.recv", "type", msg.Type, "id", msg.ID)
			s.route(ctx, msg)
		}
	})
}

func (s *Server) route(ctx context.Context, msg IncomingMsg) {
	s.mu.Lock()
	waiter, isResponse := s.pending[msg.ID]
	handler := s.handler
	s.mu.Unlock()

	switch {
	case msg.Type == "response" && isResponse:
		select {
		case waiter <- msg:
		default:
		}
	case msg.Type == "command" && handler != nil:
		go func() {
			resp := handler(ctx, msg.Request)
			if err := s.Send(OutgoingMsg{ID: msg.ID, Action: "response", Response: resp}); err != nil {
				applog.Error("ws.command.reply", err, "id", msg.ID)
			}
		}()
	default:
		select {
		case s.msgs <- msg:
		default:
		}
	}
}

// ListenAndServe starts the WebSocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

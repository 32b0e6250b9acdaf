// Package feed publishes market data over websockets: execution prints
// as matching produces them and top-of-book updates after every book
// mutation. It sits entirely outside the engine; the session layer
// pushes records in through the Publisher methods.
package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"vidar/internal/common"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 5 * time.Second
)

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Server exposes /ws/executions and /ws/book websocket endpoints.
type Server struct {
	addr     string
	execs    *hub[*common.Execution]
	tops     *hub[common.TopOfBook]
	upgrader websocket.Upgrader
}

func New(addr string) *Server {
	return &Server{
		addr:  addr,
		execs: newHub[*common.Execution](),
		tops:  newHub[common.TopOfBook](),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// PublishExecution broadcasts one execution print.
func (s *Server) PublishExecution(e *common.Execution) {
	s.execs.Broadcast(e)
}

// PublishTop broadcasts the current best bid and ask.
func (s *Server) PublishTop(top common.TopOfBook) {
	s.tops.Broadcast(top)
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/executions", func(w http.ResponseWriter, r *http.Request) {
		serveHub(ctx, s, w, r, s.execs, "execution")
	})
	mux.HandleFunc("/ws/book", func(w http.ResponseWriter, r *http.Request) {
		serveHub(ctx, s, w, r, s.tops, "book")
	})

	srv := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", s.addr).Msg("feed running")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func serveHub[T any](ctx context.Context, s *Server, w http.ResponseWriter, r *http.Request, h *hub[T], kind string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.Subscribe(subscriberBuffer)
	defer h.Unsubscribe(sub)

	// Drain reads so close frames are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Info().Str("kind", kind).Str("address", conn.RemoteAddr().String()).Msg("feed subscriber connected")
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case value := <-sub.ch:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: kind, Data: value}); err != nil {
				return
			}
		}
	}
}

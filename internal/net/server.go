package net

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"vidar/internal/common"
	"vidar/internal/engine"
	"vidar/internal/utils"
)

const (
	defaultNWorkers    = 10
	defaultConnTimeout = time.Minute
)

var ErrImproperConversion = errors.New("improper type conversion")

// Publisher receives market data as the engine produces it. The feed
// implements it; a nil publisher disables publication.
type Publisher interface {
	PublishExecution(e *common.Execution)
	PublishTop(top common.TopOfBook)
}

// ClientSession contains relevant information pertaining to an
// individual connected TCP session.
type ClientSession struct {
	conn  net.Conn
	token uuid.UUID
}

// ClientMessage links a message to the client session sending it.
type ClientMessage struct {
	clientAddress string
	message       Message
}

// Server is the session layer in front of the book: it parses order
// frames off TCP connections, feeds them to the engine on a single
// goroutine, and delivers execution and error reports back to the
// owning sessions. The book itself is only ever touched from the
// engine loop, preserving its single-threaded contract.
type Server struct {
	address string
	port    int
	book    *engine.Book
	pub     Publisher

	pool   utils.WorkerPool
	cancel context.CancelFunc

	clientSessionsLock sync.Mutex
	clientSessions     map[string]*ClientSession
	sessionsByClient   map[uint32]*ClientSession

	clientMessages chan ClientMessage
}

func New(address string, port int, book *engine.Book) *Server {
	return &Server{
		address:          address,
		port:             port,
		book:             book,
		pool:             utils.NewWorkerPool(defaultNWorkers),
		clientSessions:   make(map[string]*ClientSession),
		sessionsByClient: make(map[uint32]*ClientSession),
		clientMessages:   make(chan ClientMessage, 1),
	}
}

// SetPublisher attaches a market-data publisher. Must be called before
// Run.
func (s *Server) SetPublisher(pub Publisher) {
	s.pub = pub
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	s.cancel()
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	// Setup a cancel on the context for future shutdown.
	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	// Start a tcp listener.
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	// Start the worker pool reading client connections.
	s.pool.Setup(t, s.handleConnection)

	// Start the engine loop.
	t.Go(func() error {
		return s.engineLoop(t)
	})

	log.Info().
		Str("symbol", s.book.Symbol()).
		Str("address", listener.Addr().String()).
		Msg("server running")

	// Start accepting connections.
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				log.Error().Err(err).Msg("error accepting client")
				continue
			}

			sess := s.addClientSession(conn)
			log.Info().
				Str("address", conn.RemoteAddr().String()).
				Str("session", sess.token.String()).
				Msg("new client added")

			// Pass over the connection to be read from.
			s.pool.AddTask(conn)
		}
	}
}

// engineLoop is the only goroutine that touches the book. It applies
// each client message, then drains and dispatches whatever executions
// the matching produced.
func (s *Server) engineLoop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.clientMessages:
			s.handleMessage(msg)
		}
	}
}

func (s *Server) handleMessage(msg ClientMessage) {
	switch m := msg.message.(type) {
	case NewOrderMessage:
		s.bindClientID(m.ClientID, msg.clientAddress)

		orderID, err := s.book.Submit(m.OrderData())
		if err != nil {
			log.Warn().
				Err(err).
				Uint32("client", m.ClientID).
				Msg("order rejected")
			s.sendReport(msg.clientAddress, NewErrorReport(err))
		} else {
			log.Info().
				Uint64("order", orderID).
				Uint32("client", m.ClientID).
				Str("side", m.Side.String()).
				Int64("price", m.LimitPrice).
				Int64("shares", m.Shares).
				Msg("order accepted")
		}

		// A self-trade rejection can still have produced valid fills
		// against other clients earlier in the sweep.
		s.dispatchExecutions()
		s.publishTop()

	case CancelOrderMessage:
		if err := s.book.Cancel(m.OrderID); err != nil {
			log.Warn().Err(err).Uint64("order", m.OrderID).Msg("cancel rejected")
			s.sendReport(msg.clientAddress, NewErrorReport(err))
			return
		}
		log.Info().Uint64("order", m.OrderID).Msg("order cancelled")
		s.publishTop()

	case BaseMessage:
		// Heartbeat: nothing to do.
	}
}

// dispatchExecutions drains the book and reports every execution to
// both parties, plus the market-data publisher.
func (s *Server) dispatchExecutions() {
	for _, e := range s.book.DrainExecutions() {
		payload := NewExecutionReport(e)
		s.sendReportToClient(e.MakerClientID, payload)
		s.sendReportToClient(e.TakerClientID, payload)
		if s.pub != nil {
			s.pub.PublishExecution(e)
		}
	}
}

func (s *Server) publishTop() {
	if s.pub != nil {
		s.pub.PublishTop(s.book.Top())
	}
}

func (s *Server) sendReportToClient(clientID uint32, r Report) {
	s.clientSessionsLock.Lock()
	sess, ok := s.sessionsByClient[clientID]
	s.clientSessionsLock.Unlock()
	if !ok {
		// The client has no live session; the report is dropped.
		log.Debug().Uint32("client", clientID).Msg("no session for report")
		return
	}
	s.writeReport(sess, r)
}

func (s *Server) sendReport(address string, r Report) {
	s.clientSessionsLock.Lock()
	sess, ok := s.clientSessions[address]
	s.clientSessionsLock.Unlock()
	if !ok {
		return
	}
	s.writeReport(sess, r)
}

func (s *Server) writeReport(sess *ClientSession, r Report) {
	if _, err := sess.conn.Write(r.Serialize()); err != nil {
		log.Error().
			Err(err).
			Str("session", sess.token.String()).
			Msg("unable to send report")
		s.deleteClientSession(sess.conn.RemoteAddr().String())
	}
}

// handleConnection is a short-lived worker method which reads the next
// frame off the connection, parses it and passes it forward to the
// engine loop. If the connection dies, the client session is cleaned
// up. Note, any error returned from here is fatal to the worker.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetReadDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Err(err).
			Str("address", conn.RemoteAddr().String()).
			Msg("failed setting deadline for connection")
		return nil
	}

	select {
	case <-t.Dying():
		return nil
	default:
		frame, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.Error().
					Err(err).
					Str("address", conn.RemoteAddr().String()).
					Msg("error reading from connection")
			}
			s.closeClientSession(conn)
			return nil
		}

		message, err := parseMessage(frame)
		if err != nil {
			log.Error().
				Err(err).
				Str("address", conn.RemoteAddr().String()).
				Msg("error parsing message")
			s.closeClientSession(conn)
			return nil
		}

		// Pass over to the engine loop and exit this worker.
		s.clientMessages <- ClientMessage{
			message:       message,
			clientAddress: conn.RemoteAddr().String(),
		}

		// Push the client connection back to handle the next message.
		s.pool.AddTask(conn)
	}
	return nil
}

// readFrame reads exactly one message off the stream: the 2-byte type
// header followed by the fixed-length body for that type.
func readFrame(conn net.Conn) ([]byte, error) {
	head := make([]byte, BaseMessageHeaderLen)
	if _, err := io.ReadFull(conn, head); err != nil {
		return nil, err
	}

	var bodyLen int
	switch MessageType(binary.BigEndian.Uint16(head)) {
	case Heartbeat:
		bodyLen = 0
	case NewOrder:
		bodyLen = NewOrderMessageHeaderLen
	case CancelOrder:
		bodyLen = CancelOrderMessageHeaderLen
	default:
		return nil, ErrInvalidMessageType
	}

	frame := make([]byte, BaseMessageHeaderLen+bodyLen)
	copy(frame, head)
	if bodyLen > 0 {
		if _, err := io.ReadFull(conn, frame[BaseMessageHeaderLen:]); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// addClientSession is an atomic map add.
func (s *Server) addClientSession(conn net.Conn) *ClientSession {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	sess := &ClientSession{
		conn:  conn,
		token: uuid.New(),
	}
	s.clientSessions[conn.RemoteAddr().String()] = sess
	return sess
}

// bindClientID routes future reports for clientID to the session that
// most recently submitted under it.
func (s *Server) bindClientID(clientID uint32, address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	if sess, ok := s.clientSessions[address]; ok {
		s.sessionsByClient[clientID] = sess
	}
}

func (s *Server) closeClientSession(conn net.Conn) {
	s.deleteClientSession(conn.RemoteAddr().String())
	if err := conn.Close(); err != nil {
		log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("close failed")
	}
}

// deleteClientSession is an atomic map remove.
func (s *Server) deleteClientSession(address string) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	sess, ok := s.clientSessions[address]
	if !ok {
		return
	}
	delete(s.clientSessions, address)
	for id, candidate := range s.sessionsByClient {
		if candidate == sess {
			delete(s.sessionsByClient, id)
		}
	}
}

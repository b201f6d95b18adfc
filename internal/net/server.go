package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"gavel/internal/auction"
	"gavel/internal/house"
	"gavel/internal/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"
)

const (
	MAX_RECV_SIZE      = 4 * 1024
	defaultNWorkers    = 10
	defaultConnTimeout = time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrUnknownOrder       = errors.New("unknown order")
	ErrOrderNotPending    = errors.New("order is not pending")
)

// ClientSession contains relevant information pertaining to an individual
// connected TCP session.
type ClientSession struct {
	conn net.Conn
}

type Server struct {
	address            string
	port               int
	house              *house.House
	pool               *utils.WorkerPool
	clientSessions     map[string]ClientSession
	clientSessionsLock sync.Mutex
	now                func() time.Time
}

func New(address string, port int, workers int, h *house.House) *Server {
	if workers < 1 {
		workers = defaultNWorkers
	}
	return &Server{
		address:        address,
		port:           port,
		house:          h,
		pool:           utils.NewWorkerPool(workers),
		clientSessions: make(map[string]ClientSession),
		now:            time.Now,
	}
}

// Serve accepts order entry connections until the tomb starts dying.
func (s *Server) Serve(t *tomb.Tomb) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("unable to start listener: %w", err)
	}

	// Unblocks Accept below on shutdown.
	t.Go(func() error {
		<-t.Dying()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
		s.closeClientSessions()
		return nil
	})

	s.pool.Setup(t, s.handleConnection)

	log.Info().Str("address", listener.Addr().String()).Msg("order entry server running")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-t.Dying():
				log.Info().Msg("order entry server shutting down")
				return nil
			default:
			}
			log.Error().Err(err).Msg("error accepting client")
			continue
		}

		log.Info().
			Str("address", conn.RemoteAddr().String()).
			Msg("new client added")
		// We expect to potentially maintain a long TCP session.
		s.addClientSession(conn)

		// Pass over the connection to be read from.
		if !s.pool.AddTask(t, conn) {
			s.dropClient(conn)
		}
	}
}

// handleConnection is a short-lived worker method which reads the next message
// off the connection, handles it and writes back a single report. Idle
// connections are pushed back onto the pool, and dead ones are cleaned up.
// Note, any error returned from here is fatal.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	address := conn.RemoteAddr().String()

	// Set max read timeout.
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().
			Str("address", address).
			Err(err).
			Msg("failed setting deadline for connection")
		s.dropClient(conn)
		return nil
	}

	buffer := make([]byte, MAX_RECV_SIZE)
	n, err := conn.Read(buffer)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			s.requeue(t, conn)
			return nil
		}
		if !errors.Is(err, io.EOF) {
			log.Error().
				Err(err).
				Str("address", address).
				Msg("error reading from connection")
		}
		s.dropClient(conn)
		return nil
	}

	report := s.handleMessage(buffer[:n])
	data, err := report.Serialize()
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to serialize report")
		s.dropClient(conn)
		return nil
	}
	if _, err := conn.Write(data); err != nil {
		log.Error().Err(err).Str("address", address).Msg("unable to send report")
		s.dropClient(conn)
		return nil
	}

	// Push the client connection back to handle the next message.
	s.requeue(t, conn)
	return nil
}

// requeue hands the connection back to the pool without blocking the calling
// worker on a full task queue.
func (s *Server) requeue(t *tomb.Tomb, conn net.Conn) {
	t.Go(func() error {
		if !s.pool.AddTask(t, conn) {
			s.dropClient(conn)
		}
		return nil
	})
}

// handleMessage parses a raw request and runs it against the house.
func (s *Server) handleMessage(raw []byte) Report {
	message, err := parseMessage(raw)
	if err != nil {
		log.Error().Err(err).Msg("error parsing message")
		return s.errorReport(Heartbeat, err)
	}
	return s.dispatch(message)
}

func (s *Server) dispatch(message Message) Report {
	switch m := message.(type) {
	case AuctionMessage:
		return s.handleAuction(m)
	case PlaceBidMessage:
		return s.handlePlaceBid(m)
	case OrderMessage:
		return s.handleOrder(m)
	default:
		return s.report(Accepted, message.GetType())
	}
}

func (s *Server) handleAuction(m AuctionMessage) Report {
	auctionID := m.AuctionID.String()

	switch m.TypeOf {
	case StartAuction:
		if err := s.house.Start(auctionID); err != nil {
			if errors.Is(err, auction.ErrInvalidTransition) {
				report := s.report(Rejected, m.TypeOf)
				report.Ref = m.AuctionID
				report.Text = err.Error()
				return report
			}
			return s.errorReport(m.TypeOf, err)
		}
		report := s.report(Accepted, m.TypeOf)
		report.Ref = m.AuctionID
		return report

	default:
		outcome, err := s.house.Close(auctionID)
		if err != nil {
			return s.errorReport(m.TypeOf, err)
		}
		report := s.report(Accepted, m.TypeOf)
		report.Ref = m.AuctionID
		report.Price = outcome.FinalPrice.InexactFloat64()
		report.Text = outcome.Winner
		return report
	}
}

func (s *Server) handlePlaceBid(m PlaceBidMessage) Report {
	amount := decimal.NewFromFloat(m.Amount)
	result, order, err := s.house.PlaceBid(m.AuctionID.String(), m.Bidder, amount)
	if err != nil {
		return s.errorReport(m.TypeOf, err)
	}
	if !result.Success {
		report := s.report(Rejected, m.TypeOf)
		report.Price = m.Amount
		report.Text = result.Message
		return report
	}

	report := s.report(Accepted, m.TypeOf)
	report.Price = m.Amount
	report.Text = result.Message
	if ref, err := uuid.Parse(order.OrderID); err == nil {
		report.Ref = ref
	}
	return report
}

func (s *Server) handleOrder(m OrderMessage) Report {
	orderID := m.OrderID.String()
	ledger := s.house.Ledger()

	order, ok := ledger.Order(orderID)
	if !ok {
		return s.errorReport(m.TypeOf, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID))
	}

	var done bool
	if m.TypeOf == FillOrder {
		done = ledger.FillOrder(orderID)
	} else {
		done = ledger.CancelOrder(orderID)
	}

	report := s.report(Accepted, m.TypeOf)
	if !done {
		report.MessageType = Rejected
		report.Text = ErrOrderNotPending.Error()
	}
	report.Ref = m.OrderID
	report.Price = order.BidAmount.InexactFloat64()
	return report
}

func (s *Server) report(typeOf ReportMessageType, request MessageType) Report {
	return Report{
		MessageType: typeOf,
		Request:     request,
		Timestamp:   uint64(s.now().UnixNano()),
	}
}

func (s *Server) errorReport(request MessageType, err error) Report {
	report := s.report(ErrorReport, request)
	report.Text = err.Error()
	return report
}

// addClientSession is an atomic map add
func (s *Server) addClientSession(conn net.Conn) {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	s.clientSessions[conn.RemoteAddr().String()] = ClientSession{
		conn: conn,
	}
}

// dropClient closes the connection and forgets its session.
func (s *Server) dropClient(conn net.Conn) {
	address := conn.RemoteAddr().String()

	s.clientSessionsLock.Lock()
	delete(s.clientSessions, address)
	s.clientSessionsLock.Unlock()

	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Error().Err(err).Str("address", address).Msg("unable to close connection")
	}
	log.Info().Str("address", address).Msg("client removed")
}

func (s *Server) closeClientSessions() {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	for address, session := range s.clientSessions {
		_ = session.conn.Close()
		delete(s.clientSessions, address)
	}
}

// Sessions reports how many clients are connected.
func (s *Server) Sessions() int {
	s.clientSessionsLock.Lock()
	defer s.clientSessionsLock.Unlock()

	return len(s.clientSessions)
}

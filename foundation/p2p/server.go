package p2p

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles a single command. The returned string is written back to
// the peer. A returned error is written back as its message, unless it wraps
// ErrInvalidMessage, in which case InvalidMessage is written.
type Handler func(ctx context.Context, payload string) (string, error)

// Middleware is a function designed to run some code before and/or after
// another Handler.
type Middleware func(Handler) Handler

// ServerConfig represents the configuration of the P2P server.
type ServerConfig struct {
	Log            *zap.SugaredLogger
	MaxMessageSize int           // Largest request accepted.
	MaxConnections int           // Connections handled at the same time.
	Timeout        time.Duration // Deadline to read the request and write the response.
}

// Server is the entrypoint into the node for peers. It accepts connections,
// reads one request per connection and dispatches it to the registered
// handler for the command.
type Server struct {
	log      *zap.SugaredLogger
	maxSize  int
	timeout  time.Duration
	mw       []Middleware
	handlers map[string]Handler
	sem      chan struct{}
	metrics  *metrics

	mu       sync.Mutex
	listener net.Listener
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a Server that handles a set of commands.
func NewServer(cfg ServerConfig, mw ...Middleware) *Server {
	maxSize := cfg.MaxMessageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 64
	}

	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Server{
		log:      log,
		maxSize:  maxSize,
		timeout:  cfg.Timeout,
		mw:       mw,
		handlers: make(map[string]Handler),
		sem:      make(chan struct{}, maxConns),
		metrics:  newMetrics(),
	}
}

// Handle sets a handler function for a given command. Handle is not safe to
// call once the server is serving.
func (s *Server) Handle(command string, handler Handler, mw ...Middleware) {

	// First wrap handler specific middleware around this handler.
	handler = wrapMiddleware(mw, handler)

	// Add the server's general middleware to the handler chain.
	handler = wrapMiddleware(s.mw, handler)

	s.handlers[command] = handler
}

// ListenAndServe listens on the TCP address and then calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return s.Serve(ln)
}

// Serve accepts connections on the listener until Shutdown is called.
// Serve always closes the listener when it returns.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		ln.Close()
		return nil
	}
	s.listener = ln
	s.mu.Unlock()

	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isShutdown() {
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.log.Infow("p2p", "status", "accept timeout", "ERROR", err)
				continue
			}

			return fmt.Errorf("p2p accept: %w", err)
		}

		// Bound the number of requests being handled at the same time.
		s.sem <- struct{}{}
		s.wg.Add(1)

		go func() {
			defer func() {
				<-s.sem
				s.wg.Done()
			}()
			s.handleConn(conn)
		}()
	}
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for the in-flight requests
// to complete or the context to be done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================

// handleConn reads the request, dispatches it and writes the response.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if s.timeout > 0 {
		conn.SetDeadline(time.Now().Add(s.timeout))
	}

	v := Values{
		TraceID: uuid.NewString(),
		Now:     time.Now().UTC(),
		Remote:  conn.RemoteAddr().String(),
	}
	ctx := context.WithValue(context.Background(), key, &v)

	resp := s.dispatch(ctx, &v, conn)

	if _, err := io.WriteString(conn, resp+"\r\n"); err != nil {
		s.log.Infow("p2p", "traceid", v.TraceID, "status", "write response", "remote", v.Remote, "ERROR", err)
	}
}

// dispatch runs the handler for the request read from the connection and
// returns the response to write.
func (s *Server) dispatch(ctx context.Context, v *Values, r io.Reader) string {
	line, err := readLine(r, s.maxSize)
	if err != nil {
		s.log.Infow("p2p", "traceid", v.TraceID, "status", "read request", "remote", v.Remote, "ERROR", err)
		s.metrics.received("", resultInvalid)
		return InvalidMessage
	}

	msg, err := Parse(line)
	if err != nil {
		s.metrics.received("", resultInvalid)
		return InvalidMessage
	}
	v.Command = msg.Command

	handler, exists := s.handlers[msg.Command]
	if !exists {
		s.metrics.received(msg.Command, resultInvalid)
		return InvalidMessage
	}

	resp, err := handler(ctx, msg.Payload)
	switch {
	case errors.Is(err, ErrInvalidMessage):
		s.metrics.received(msg.Command, resultInvalid)
		return InvalidMessage

	case err != nil:
		s.metrics.received(msg.Command, resultError)
		return singleLine(err.Error())
	}

	s.metrics.received(msg.Command, resultOK)
	return resp
}

// isShutdown reports whether Shutdown has been called.
func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shutdown
}

// =============================================================================

// readLine reads a newline terminated line of at most max bytes. A line cut
// short by the peer closing its side is accepted.
func readLine(r io.Reader, max int) (string, error) {
	br := bufio.NewReader(io.LimitReader(r, int64(max)+1))

	line, err := br.ReadString('\n')
	if len(line) > max {
		return "", fmt.Errorf("message larger than %d bytes", max)
	}

	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}

	return line, nil
}

// singleLine keeps error messages from breaking the response framing.
func singleLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// wrapMiddleware creates a new handler by wrapping middleware around a final
// handler. The middlewares' Handlers will be executed by requests in the order
// they are provided.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {

	// Loop backwards through the middleware invoking each one. Replace the
	// handler with the new wrapped handler. Looping backwards ensures that the
	// first middleware of the slice is the first to be executed by requests.
	for i := len(mw) - 1; i >= 0; i-- {
		h := mw[i]
		if h != nil {
			handler = h(handler)
		}
	}

	return handler
}

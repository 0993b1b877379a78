package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/swapkit-dev/swapkit"
	"github.com/swapkit-dev/swapkit/internal/errors"
	"github.com/swapkit-dev/swapkit/pkg/dom"
	"github.com/swapkit-dev/swapkit/pkg/loop"
	"github.com/swapkit-dev/swapkit/pkg/protocol"
)

// wsConn is the slice of *websocket.Conn the session needs. Tests
// substitute an in-memory implementation.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one connected client: a DOM mirror, its event loop, and
// the scheduler engine on top. Events are replayed on the loop; the
// schedulers never see the network.
type Session struct {
	ID string

	cfg     *Config
	conn    wsConn
	lp      *loop.Loop
	doc     *dom.Document
	engine  *swapkit.Engine
	logger  *slog.Logger
	metrics *Metrics

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession builds a session over an accepted connection. Run starts
// it.
func NewSession(id string, conn wsConn, cfg *Config, metrics *Metrics) *Session {
	logger := cfg.Logger.With("session", id)
	lp := loop.New(
		loop.WithLogger(logger),
		loop.WithQueueSize(cfg.Session.QueueSize),
	)
	doc := cfg.NewDocument()

	engineCfg := cfg.Engine
	if engineCfg.Logger == nil {
		engineCfg.Logger = logger
	}

	return &Session{
		ID:      id,
		cfg:     cfg,
		conn:    conn,
		lp:      lp,
		doc:     doc,
		engine:  swapkit.New(lp, doc, engineCfg),
		logger:  logger,
		metrics: metrics,
		send:    make(chan []byte, cfg.Session.SendBuffer),
		closed:  make(chan struct{}),
	}
}

// Engine exposes the session's scheduler engine.
func (s *Session) Engine() *swapkit.Engine {
	return s.engine
}

// Run starts the engine and pumps frames until the connection drops or
// Close is called. It blocks.
func (s *Session) Run() error {
	if err := s.engine.Start(); err != nil {
		s.teardown()
		return err
	}
	s.metrics.activeSessions.Inc()
	defer s.metrics.activeSessions.Dec()

	go s.writeLoop()
	s.readLoop()
	s.teardown()
	return nil
}

// Close shuts the session down. Idempotent and safe from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
}

func (s *Session) teardown() {
	s.Close()
	s.engine.Stop()
	s.lp.Close()
}

// SendPatches encodes and queues patch frames, splitting batches too
// large for a single frame. A session that cannot keep up has its
// connection closed rather than blocking the caller.
func (s *Session) SendPatches(patches []protocol.Patch) {
	payloads, err := protocol.EncodePatchFrames(patches)
	if err != nil {
		s.logger.Error("dropping patch batch", "error", err)
		return
	}
	for _, payload := range payloads {
		if !s.sendFrame(protocol.NewFrame(protocol.FramePatch, payload)) {
			return
		}
		s.metrics.patchBytes.Add(float64(len(payload)))
	}
	s.metrics.patchesSent.Add(float64(len(patches)))
}

func (s *Session) sendFrame(f *protocol.Frame) bool {
	select {
	case s.send <- f.Encode():
		return true
	case <-s.closed:
		return false
	default:
		s.logger.Warn("send buffer full, closing session")
		s.Close()
		return false
	}
}

func (s *Session) sendError(err *errors.Error) {
	s.sendFrame(protocol.NewFrame(protocol.FrameError,
		protocol.EncodeError(&protocol.ErrorInfo{
			Code:    err.Code,
			Message: err.Message,
		})))
}

func (s *Session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.logger.Debug("read failed", "error", err)
			}
			return
		}
		if done := s.handleFrame(data); done {
			return
		}
	}
}

func (s *Session) writeLoop() {
	ping := time.NewTicker(s.cfg.Session.PingInterval)
	defer ping.Stop()

	pingFrame := protocol.NewFrame(protocol.FrameControl,
		protocol.EncodeControl(&protocol.Control{Type: protocol.ControlPing})).Encode()

	for {
		select {
		case data := <-s.send:
			if err := s.write(data); err != nil {
				s.logger.Debug("write failed", "error", err)
				s.Close()
				return
			}
		case <-ping.C:
			if err := s.write(pingFrame); err != nil {
				s.Close()
				return
			}
		case <-s.closed:
			return
		}
	}
}

// write bounds one outbound frame by the configured write timeout so a
// stalled client cannot wedge the write loop.
func (s *Session) write(data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.Session.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// handleFrame processes one inbound frame. It reports whether the
// session should stop reading.
func (s *Session) handleFrame(data []byte) bool {
	frame, err := protocol.DecodeFrame(data)
	if err != nil {
		s.rejectFrame(err)
		return false
	}

	switch frame.Type {
	case protocol.FrameEvent:
		ev, err := protocol.DecodeEvent(frame.Payload)
		if err != nil {
			s.rejectFrame(err)
			return false
		}
		s.metrics.eventsReceived.WithLabelValues(ev.Type.String()).Inc()
		if !s.lp.TryDispatch(func() { s.applyEvent(ev) }) {
			s.metrics.eventsDropped.Inc()
			s.logger.Warn("event queue full, dropping event",
				"type", ev.Type.String(), "target", ev.Target)
			s.sendError(errors.New(errors.CodeEventQueueFull))
		}

	case protocol.FrameControl:
		ctl, err := protocol.DecodeControl(frame.Payload)
		if err != nil {
			s.rejectFrame(err)
			return false
		}
		return s.handleControl(ctl)

	default:
		// Patch and error frames only flow server to client.
		s.rejectFrame(protocol.ErrInvalidFrameType)
	}
	return false
}

func (s *Session) rejectFrame(err error) {
	s.metrics.frameErrors.Inc()
	s.logger.Debug("malformed frame", "error", err)
	s.sendError(errors.New(errors.CodeMalformedFrame).Wrap(err))
}

func (s *Session) handleControl(ctl *protocol.Control) bool {
	switch ctl.Type {
	case protocol.ControlPing:
		s.sendFrame(protocol.NewFrame(protocol.FrameControl,
			protocol.EncodeControl(&protocol.Control{Type: protocol.ControlPong})))
	case protocol.ControlPong:
		// Liveness only.
	case protocol.ControlClose:
		s.logger.Debug("client closed session", "reason", ctl.Reason)
		s.Close()
		return true
	case protocol.ControlPreloadOff:
		if m := s.engine.Manager(); m != nil {
			m.SetDisabled(true)
		}
	case protocol.ControlPreloadOn:
		if m := s.engine.Manager(); m != nil {
			m.SetDisabled(false)
		}
	}
	return false
}

// applyEvent replays one wire event on the DOM mirror. Runs on the
// loop.
func (s *Session) applyEvent(ev *protocol.Event) {
	target := s.doc.GetByID(ev.Target)
	if target == nil {
		s.logger.Debug("event for unknown element", "target", ev.Target)
		return
	}

	start := time.Now()
	_, span := startEventSpan(context.Background(), s.cfg.TracerName, s.ID, ev)

	switch ev.Type {
	case protocol.EventInput, protocol.EventChange:
		// The mirror lags the real control; apply the new value before
		// anyone reads it.
		target.SetValue(ev.Value)
	}

	target.Dispatch(&dom.Event{
		Name:     ev.Type.DOMName(),
		Target:   target,
		ClientX:  ev.ClientX,
		ClientY:  ev.ClientY,
		Button:   int(ev.Button),
		CtrlKey:  ev.Modifiers.Has(protocol.ModCtrl),
		ShiftKey: ev.Modifiers.Has(protocol.ModShift),
		AltKey:   ev.Modifiers.Has(protocol.ModAlt),
		MetaKey:  ev.Modifiers.Has(protocol.ModMeta),
	})

	endEventSpan(span, nil)
	s.metrics.eventDuration.WithLabelValues(ev.Type.String()).
		Observe(time.Since(start).Seconds())
}

// Package stream runs one websocket streaming session per client:
// frames in, masked frames plus perf snapshots out, with control
// messages handled between frames.
package stream

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/playalter/maskstream/internal/log"
	"github.com/playalter/maskstream/pkg/debug"
	"github.com/playalter/maskstream/pkg/mask"
	"github.com/playalter/maskstream/pkg/pipeline"
)

// batchFlushInterval bounds how long a partial batch may wait before it
// is processed anyway (one 30fps frame period).
const batchFlushInterval = 33 * time.Millisecond

// Session owns one client connection's pipeline state. Frames are
// processed and returned in strict arrival order; the websocket read is
// the only suspension point. All state is private to the connection —
// nothing here is shared across clients except the active counter.
type Session struct {
	id        string
	conn      *websocket.Conn
	proc      *pipeline.Processor
	maskCfg   mask.Config
	batchSize int

	batch      [][]byte
	batchStart time.Time
}

// Options tunes a session beyond the defaults.
type Options struct {
	// BatchSize groups several frames' worth of work before flushing
	// results, reducing per-frame scheduling overhead. 0 or 1 disables
	// batching.
	BatchSize int
}

// NewSession wraps a connection and its processor. The session takes
// ownership of proc and closes it when Run returns.
func NewSession(id string, conn *websocket.Conn, proc *pipeline.Processor, opts Options) *Session {
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &Session{
		id:        id,
		conn:      conn,
		proc:      proc,
		maskCfg:   mask.DefaultConfig(),
		batchSize: batchSize,
	}
}

// Run processes the connection until it closes. Blocking; call from the
// websocket handler goroutine.
func (s *Session) Run() {
	activeStreams.Add(1)
	logger := log.Stream(s.id)
	logger.Info("session started", "active", ActiveStreams(), "batch", s.batchSize)

	defer func() {
		s.flushBatch()
		s.proc.Close()
		activeStreams.Add(-1)
		logger.Info("session ended", "active", ActiveStreams())
	}()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.handleFrame(data)

		case websocket.TextMessage:
			var ctl Control
			if err := json.Unmarshal(data, &ctl); err != nil {
				s.writeAck(Ack{Status: StatusError, Message: "bad control message"})
				continue
			}
			// Control messages apply between frames: drain any pending
			// batch first so the new config never splits a batch.
			s.flushBatch()
			s.writeAck(s.applyControl(ctl))
		}
	}
}

// handleFrame either processes the frame immediately or queues it for
// the current batch.
func (s *Session) handleFrame(data []byte) {
	if s.batchSize <= 1 {
		s.processAndSend(data)
		return
	}

	if len(s.batch) == 0 {
		s.batchStart = time.Now()
	}
	s.batch = append(s.batch, data)

	if len(s.batch) >= s.batchSize || time.Since(s.batchStart) > batchFlushInterval {
		s.flushBatch()
	}
}

// flushBatch processes queued frames in arrival order.
func (s *Session) flushBatch() {
	for _, data := range s.batch {
		s.processAndSend(data)
	}
	s.batch = s.batch[:0]
}

// processAndSend runs one frame through the pipeline and relays the
// result. A dropped frame manifests only as a missing output frame,
// never as a connection error.
func (s *Session) processAndSend(data []byte) {
	out, perf, err := s.proc.ProcessFrame(data, s.maskCfg)
	if err != nil {
		debug.FrameLog("stream %s: dropped frame: %v\n", s.id, err)
		return
	}

	if err := s.conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
		return
	}
	// Perf snapshot rides the text channel as a separate message.
	s.conn.WriteJSON(Ack{Status: StatusStats, Data: perf})
}

// applyControl handles one control message and builds the reply. The
// new mask configuration takes effect in full on the next frame.
func (s *Session) applyControl(ctl Control) Ack {
	switch ctl.Action {
	case ActionUpdateMask:
		if ctl.MaskSettings == nil {
			return Ack{Status: StatusError, Message: "missing mask_settings"}
		}
		s.maskCfg = ctl.MaskSettings.Normalized()
		cfg := s.maskCfg
		return Ack{Status: StatusMaskUpdated, Settings: &cfg}

	case ActionGetStats:
		return Ack{Status: StatusStats, Data: s.proc.Report()}

	default:
		return Ack{Status: StatusError, Message: "unknown action: " + ctl.Action}
	}
}

// MaskConfig returns the session's current mask configuration.
func (s *Session) MaskConfig() mask.Config {
	return s.maskCfg
}

func (s *Session) writeAck(ack Ack) {
	if err := s.conn.WriteJSON(ack); err != nil {
		log.Stream(s.id).Warn("ack write failed", "err", err)
	}
}

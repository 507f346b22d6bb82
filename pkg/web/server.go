// Package web wires the streaming pipeline to its HTTP/websocket
// surface: per-client streaming sockets, a monitor broadcast, and a
// small stats API.
package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/playalter/maskstream/internal/log"
	"github.com/playalter/maskstream/pkg/hub"
	"github.com/playalter/maskstream/pkg/pipeline"
	"github.com/playalter/maskstream/pkg/stream"
)

// monitorInterval is how often aggregate stats go out to monitors.
const monitorInterval = 2 * time.Second

// Config holds the server settings.
type Config struct {
	Port        string
	CascadePath string
	TargetFPS   int
	JPEGQuality int
	BatchSize   int
}

// AggregateStats is the process-wide view broadcast to monitors and
// served at /api/stats. Per-session stats stay with their session.
type AggregateStats struct {
	ActiveStreams  int64   `json:"active_streams"`
	MonitorClients int     `json:"monitor_clients"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	TargetFPS      int     `json:"target_fps"`
}

// Server is the streaming front end.
type Server struct {
	app        *fiber.App
	cfg        Config
	monitorHub *hub.Hub
	started    time.Time
}

// NewServer builds the fiber app and routes.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:        cfg,
		monitorHub: hub.New("monitor"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "maskstream",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/stats", s.handleStats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/stream/:id", websocket.New(s.handleStreamWS))
	app.Get("/ws/monitor", websocket.New(s.handleMonitorWS))

	s.app = app
	return s
}

// Start runs the hub, the monitor broadcast loop, and the listener.
// Blocks until the listener stops.
func (s *Server) Start() error {
	s.started = time.Now()

	go s.monitorHub.Run()
	go s.broadcastLoop()

	log.Info("maskstream listening", "port", s.cfg.Port, "target_fps", s.cfg.TargetFPS)
	return s.app.Listen(":" + s.cfg.Port)
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// broadcastLoop pushes aggregate stats to monitor clients.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for range ticker.C {
		if s.monitorHub.ClientCount() == 0 {
			continue
		}
		s.monitorHub.BroadcastJSON(s.aggregate())
	}
}

func (s *Server) aggregate() AggregateStats {
	return AggregateStats{
		ActiveStreams:  stream.ActiveStreams(),
		MonitorClients: s.monitorHub.ClientCount(),
		UptimeSeconds:  time.Since(s.started).Seconds(),
		TargetFPS:      s.cfg.TargetFPS,
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"active_streams": stream.ActiveStreams(),
	})
}

// handleStats returns the process-wide aggregate.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.aggregate())
}

// handleStreamWS runs one streaming session. Each connection gets its
// own processor; nothing is shared across clients.
func (s *Server) handleStreamWS(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	proc, err := pipeline.New(pipeline.Config{
		CascadePath: s.cfg.CascadePath,
		TargetFPS:   s.cfg.TargetFPS,
		JPEGQuality: s.cfg.JPEGQuality,
	})
	if err != nil {
		log.Error("processor init failed", "stream", id, "err", err)
		c.WriteJSON(stream.Ack{Status: stream.StatusError, Message: "pipeline unavailable"})
		c.Close()
		return
	}

	sess := stream.NewSession(id, c, proc, stream.Options{BatchSize: s.cfg.BatchSize})
	sess.Run()
}

// handleMonitorWS attaches a dashboard client to the monitor hub.
func (s *Server) handleMonitorWS(c *websocket.Conn) {
	client := hub.NewClient(s.monitorHub, c)
	client.Run()
}

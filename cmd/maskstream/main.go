// Maskstream server - real-time face masking over websockets
//
// Accepts JPEG frames per client connection, applies the configured
// privacy effect, and streams masked frames back with perf snapshots.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/playalter/maskstream/internal/config"
	"github.com/playalter/maskstream/internal/log"
	"github.com/playalter/maskstream/pkg/debug"
	"github.com/playalter/maskstream/pkg/web"
)

func main() {
	port := flag.String("port", config.Port(), "listen port")
	cascade := flag.String("cascade", config.CascadePath(), "Haar cascade XML path")
	fps := flag.Int("fps", config.TargetFPS(), "target frame rate budget")
	jpegQuality := flag.Int("jpeg-quality", config.JPEGQuality(), "outbound JPEG quality (1-100)")
	batch := flag.Int("batch", 1, "frames per processing batch (1 disables batching)")
	logLevel := flag.String("log-level", config.LogLevel(), "log level: debug, info, warn, error")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	debugFrames := flag.Bool("debug-frames", false, "enable very verbose per-frame logs")
	flag.Parse()

	log.Init(*logLevel)
	debug.Enabled = *debugFlag
	debug.Frames = *debugFrames

	server := web.NewServer(web.Config{
		Port:        *port,
		CascadePath: *cascade,
		TargetFPS:   *fps,
		JPEGQuality: *jpegQuality,
		BatchSize:   *batch,
	})

	// Graceful shutdown on Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		server.Shutdown()
	}()

	if err := server.Start(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

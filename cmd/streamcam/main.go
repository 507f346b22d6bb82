// Streamcam - benchmark client for the maskstream server
//
// Generates synthetic frames with rectangular "faces", streams them
// over the websocket, and reports end-to-end masking performance.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/playalter/maskstream/pkg/pipeline"
	"github.com/playalter/maskstream/pkg/stream"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "server host:port")
	frames := flag.Int("frames", 100, "number of frames to stream")
	width := flag.Int("width", 1280, "frame width")
	height := flag.Int("height", 720, "frame height")
	maskType := flag.String("mask", "blur", "mask type: blur, pixelate, color_block, off")
	intensity := flag.Float64("intensity", 0.7, "mask intensity (0-1)")
	interval := flag.Duration("interval", 33*time.Millisecond, "delay between frames")
	flag.Parse()

	id := uuid.NewString()
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/stream/" + id}
	fmt.Printf("Connecting to %s\n", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Printf("dial failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Configure the mask before streaming
	ctl := map[string]interface{}{
		"action": stream.ActionUpdateMask,
		"mask_settings": map[string]interface{}{
			"type":      *maskType,
			"intensity": *intensity,
		},
	}
	if err := conn.WriteJSON(ctl); err != nil {
		fmt.Printf("mask update failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := readAck(conn); err != nil {
		fmt.Printf("mask ack failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Streaming %d frames (%dx%d, mask=%s)\n", *frames, *width, *height, *maskType)
	start := time.Now()

	for i := 0; i < *frames; i++ {
		data, err := syntheticFrame(*width, *height)
		if err != nil {
			fmt.Printf("frame build failed: %v\n", err)
			os.Exit(1)
		}

		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			fmt.Printf("send failed: %v\n", err)
			os.Exit(1)
		}

		// Server replies with the masked frame, then a perf snapshot.
		if _, _, err := conn.ReadMessage(); err != nil {
			fmt.Printf("frame read failed: %v\n", err)
			os.Exit(1)
		}
		ack, err := readAck(conn)
		if err != nil {
			fmt.Printf("perf read failed: %v\n", err)
			os.Exit(1)
		}

		if i%30 == 0 {
			var perf pipeline.PerfInfo
			json.Unmarshal(ack.Data, &perf)
			fmt.Printf("Frame %d: %.1fms, Faces: %d, Quality: %s\n",
				i, perf.ProcessingTimeMS, perf.FacesDetected, perf.Quality)
		}

		time.Sleep(*interval)
	}

	total := time.Since(start)

	// Final report
	if err := conn.WriteJSON(map[string]string{"action": stream.ActionGetStats}); err != nil {
		fmt.Printf("stats request failed: %v\n", err)
		os.Exit(1)
	}
	ack, err := readAck(conn)
	if err != nil {
		fmt.Printf("stats read failed: %v\n", err)
		os.Exit(1)
	}
	var report pipeline.Report
	json.Unmarshal(ack.Data, &report)

	fmt.Println("\n=== PERFORMANCE REPORT ===")
	fmt.Printf("Total streaming time: %.2fs\n", total.Seconds())
	fmt.Printf("Average FPS: %.1f\n", float64(*frames)/total.Seconds())
	fmt.Printf("Average latency: %.1fms\n", report.AvgLatencyMS)
	fmt.Printf("Drop rate: %.1f%%\n", report.DropRate*100)
	fmt.Printf("Final quality setting: %s\n", report.Quality)
}

// ack mirrors stream.Ack with the payload left raw for per-type decode.
type ack struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// readAck reads the next text message from the socket.
func readAck(conn *websocket.Conn) (ack, error) {
	var a ack
	_, data, err := conn.ReadMessage()
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, err
	}
	if a.Status == stream.StatusError {
		return a, fmt.Errorf("server error: %s", a.Message)
	}
	return a, nil
}

// syntheticFrame builds a gray frame with three white "face" squares at
// random positions and encodes it as JPEG.
func syntheticFrame(width, height int) ([]byte, error) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(64, 64, 64, 0), height, width, gocv.MatTypeCV8UC3)
	defer img.Close()

	white := color.RGBA{255, 255, 255, 0}
	for i := 0; i < 3; i++ {
		x := rand.Intn(width - 150)
		y := rand.Intn(height - 150)
		gocv.Rectangle(&img, image.Rect(x, y, x+100, y+100), white, -1)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

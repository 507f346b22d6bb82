package frame

import (
	"testing"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

func TestNewCodec_QualityFallback(t *testing.T) {
	tests := []struct {
		name    string
		quality int
		want    int
	}{
		{"valid", 60, 60},
		{"zero", 0, DefaultJPEGQuality},
		{"negative", -5, DefaultJPEGQuality},
		{"too high", 150, DefaultJPEGQuality},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if c := NewCodec(tc.quality); c.quality != tc.want {
				t.Errorf("got %d, want %d", c.quality, tc.want)
			}
		})
	}
}

func TestCodec_DecodeGarbage(t *testing.T) {
	c := NewCodec(DefaultJPEGQuality)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an image", []byte("definitely not jpeg bytes")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decode(tc.data)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("err = %v, want ErrDecode", err)
			}
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	c := NewCodec(90)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 200, 30, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	data, err := c.Encode(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty encoded frame")
	}

	decoded, err := c.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	defer decoded.Close()

	if decoded.Cols() != 640 || decoded.Rows() != 480 {
		t.Errorf("dims %dx%d, want 640x480", decoded.Cols(), decoded.Rows())
	}
}

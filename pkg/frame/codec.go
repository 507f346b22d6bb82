// Package frame converts between encoded JPEG frame bytes and gocv
// pixel buffers. Frames are BGR-ordered end-to-end, matching the
// OpenCV convention.
package frame

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the outbound encode quality when none is given.
const DefaultJPEGQuality = 80

// ErrDecode marks an undecodable inbound frame. Decode failures are
// per-frame and recoverable: callers drop the frame and keep streaming.
var ErrDecode = errors.New("undecodable frame")

// Codec encodes and decodes JPEG frames with a fixed quality setting.
type Codec struct {
	quality int
}

// NewCodec creates a codec with the given JPEG quality (1-100).
// Out-of-range values fall back to the default.
func NewCodec(quality int) *Codec {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Codec{quality: quality}
}

// Decode turns encoded frame bytes into a BGR Mat. The caller owns the
// returned Mat and must Close it. Errors wrap ErrDecode.
func (c *Codec) Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, errors.Wrap(ErrDecode, "empty payload")
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, errors.Wrap(ErrDecode, err.Error())
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, errors.Wrap(ErrDecode, "no image data")
	}
	return img, nil
}

// Encode turns a BGR Mat back into JPEG bytes at the codec's quality.
func (c *Codec) Encode(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, c.quality})
	if err != nil {
		return nil, errors.Wrap(err, "encode frame")
	}
	defer buf.Close()

	// The native buffer is freed on Close, so hand back a copy.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

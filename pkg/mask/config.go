package mask

// Type names a privacy effect.
type Type string

const (
	// TypeOff disables masking entirely.
	TypeOff Type = "off"
	// TypeBlur applies a Gaussian blur over the face region.
	TypeBlur Type = "blur"
	// TypePixelate downsamples the region into visible blocks.
	TypePixelate Type = "pixelate"
	// TypeColorBlock blends a flat fill color over the region.
	TypeColorBlock Type = "color_block"
)

// DefaultIntensity is the effect strength used when a client gives none.
const DefaultIntensity = 0.7

// defaultColor is the BGR fill for color_block when no color is set.
var defaultColor = [3]int{100, 100, 100}

// Config is the client-controlled mask description. It is read in full
// once per frame; updates between frames replace it wholesale, never
// field by field.
type Config struct {
	Type      Type    `json:"type"`
	Intensity float64 `json:"intensity"`
	// Color is an optional BGR triple for color_block.
	Color *[3]int `json:"color,omitempty"`
}

// DefaultConfig returns the mask applied to new sessions.
func DefaultConfig() Config {
	return Config{
		Type:      TypeBlur,
		Intensity: DefaultIntensity,
	}
}

// Normalized returns a copy with the intensity clamped to [0,1] and
// unknown types treated as off.
func (c Config) Normalized() Config {
	switch c.Type {
	case TypeBlur, TypePixelate, TypeColorBlock, TypeOff:
	default:
		c.Type = TypeOff
	}
	if c.Intensity < 0 {
		c.Intensity = 0
	}
	if c.Intensity > 1 {
		c.Intensity = 1
	}
	return c
}

// fill returns the configured BGR color, or the default gray.
func (c Config) fill() [3]int {
	if c.Color != nil {
		return *c.Color
	}
	return defaultColor
}

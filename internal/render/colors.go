package render

import (
	"image/color"

	"github.com/jwulff/lotscope-go/internal/domain"
)

// Chart colors.
var (
	ColorGray = domain.NewRGB(128, 128, 128)

	// Tag colors
	ColorError  = domain.NewRGB(196, 78, 82)  // #c44e52
	ColorNormal = domain.NewRGB(76, 114, 176) // #4c72b0

	// Diverging scale for correlation values in [-1, 1]
	ColorCoolLow  = domain.NewRGB(59, 76, 192)   // #3b4cc0
	ColorCoolMid  = domain.NewRGB(221, 221, 221) // #dddddd
	ColorCoolHigh = domain.NewRGB(180, 4, 38)    // #b40426
)

// TagColor returns the series color for a tag.
func TagColor(tag domain.Tag) domain.RGB {
	switch tag {
	case domain.TagError:
		return ColorError
	case domain.TagNormal:
		return ColorNormal
	default:
		return ColorGray
	}
}

// CoolwarmColor maps a correlation value in [-1, 1] onto the diverging scale.
func CoolwarmColor(v float64) domain.RGB {
	if v < 0 {
		return LerpColor(ColorCoolMid, ColorCoolLow, -v)
	}
	return LerpColor(ColorCoolMid, ColorCoolHigh, v)
}

// coolwarmStops is the number of hex stops handed to the chart visual map.
const coolwarmStops = 9

// CoolwarmScale returns the diverging scale as hex stops, low to high.
func CoolwarmScale() []string {
	stops := make([]string, coolwarmStops)
	for i := range stops {
		v := -1 + 2*float64(i)/float64(coolwarmStops-1)
		stops[i] = CoolwarmColor(v).Hex()
	}
	return stops
}

// LerpColor linearly interpolates between two colors.
func LerpColor(a, b domain.RGB, t float64) domain.RGB {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return domain.NewRGB(
		uint8(float64(a.R)+t*float64(int(b.R)-int(a.R))),
		uint8(float64(a.G)+t*float64(int(b.G)-int(a.G))),
		uint8(float64(a.B)+t*float64(int(b.B)-int(a.B))),
	)
}

// Translucent returns c with the given alpha (0-255) for area fills.
func Translucent(c domain.RGB, alpha uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: alpha}
}

package capture

import (
	"fmt"
	"strings"
)

// Point is a position in display coordinates.
type Point struct {
	X, Y float64
}

// Size is a width/height pair in display coordinates.
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned region of a display.
type Rect struct {
	Origin Point
	Size   Size
}

// NewRect builds a Rect from origin and size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{Origin: Point{X: x, Y: y}, Size: Size{Width: width, Height: height}}
}

// Empty reports whether the rect has no capturable area.
func (r Rect) Empty() bool {
	return r.Size.Width <= 0 || r.Size.Height <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", r.Origin.X, r.Origin.Y, r.Size.Width, r.Size.Height)
}

// DisplayMetadata describes the display a session captures from.
type DisplayMetadata struct {
	Width  int
	Height int
}

// Resolution selects the output frame size.
type Resolution int

const (
	// ResolutionCaptured keeps the captured size.
	ResolutionCaptured Resolution = iota
	Resolution480p
	Resolution720p
	Resolution1080p
	Resolution1440p
	Resolution2160p
	Resolution4320p
)

var resolutionNames = map[Resolution]string{
	ResolutionCaptured: "captured",
	Resolution480p:     "480p",
	Resolution720p:     "720p",
	Resolution1080p:    "1080p",
	Resolution1440p:    "1440p",
	Resolution2160p:    "2160p",
	Resolution4320p:    "4320p",
}

func (r Resolution) String() string {
	if name, ok := resolutionNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Resolution(%d)", int(r))
}

// ParseResolution maps a configuration name such as "720p" to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ResolutionCaptured, nil
	}
	for r, n := range resolutionNames {
		if n == name {
			return r, nil
		}
	}
	return ResolutionCaptured, fmt.Errorf("unknown resolution %q", s)
}

// baseWidth is the nominal width of the target, or 0 for ResolutionCaptured.
func (r Resolution) baseWidth() int {
	switch r {
	case Resolution480p:
		return 640
	case Resolution720p:
		return 1280
	case Resolution1080p:
		return 1920
	case Resolution1440p:
		return 2560
	case Resolution2160p:
		return 3840
	case Resolution4320p:
		return 7680
	default:
		return 0
	}
}

// Candidate returns the target size for a source of the given dimensions,
// keeping the source aspect ratio. ok is false for ResolutionCaptured or a
// degenerate source.
func (r Resolution) Candidate(srcWidth, srcHeight int) (width, height int, ok bool) {
	base := r.baseWidth()
	if base == 0 || srcWidth <= 0 || srcHeight <= 0 {
		return 0, 0, false
	}
	return base, base * srcHeight / srcWidth, true
}

// ResolveSourceRect returns the region to capture. A requested rect keeps its
// origin and has odd dimensions rounded up to even; no request means the whole
// display.
func ResolveSourceRect(source *Rect, display DisplayMetadata) Rect {
	if source == nil {
		return NewRect(0, 0, float64(display.Width), float64(display.Height))
	}
	return Rect{
		Origin: source.Origin,
		Size: Size{
			Width:  float64(roundUpEven(int64(source.Size.Width))),
			Height: float64(roundUpEven(int64(source.Size.Height))),
		},
	}
}

// ResolveOutputSize returns the even output dimensions for frames captured
// from source. The result never exceeds the source size.
func ResolveOutputSize(res Resolution, source Rect) (width, height int) {
	width = max(int(source.Size.Width), 0)
	height = max(int(source.Size.Height), 0)

	if w, h, ok := res.Candidate(width, height); ok {
		width = min(width, w)
		height = min(height, h)
	}

	if width%2 == 1 {
		width--
	}
	if height%2 == 1 {
		height--
	}
	return width, height
}

func roundUpEven(v int64) int64 {
	if v%2 != 0 {
		return v + 1
	}
	return v
}

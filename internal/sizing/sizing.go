// Package sizing selects output resolutions from the sizes a camera
// advertises for its still, preview and video streams.
package sizing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoSuitableSize is a warning: no candidate met the constraints and a
	// fallback size was returned instead.
	ErrNoSuitableSize = errors.New("no suitable size found")
	// ErrNoCandidates means the candidate list was empty.
	ErrNoCandidates = errors.New("no candidate sizes")
)

// Size is a width x height pair in pixels.
type Size struct {
	Width  int `json:"width" toml:"width" example:"1920" doc:"Width in pixels"`
	Height int `json:"height" toml:"height" example:"1080" doc:"Height in pixels"`
}

// Area returns width*height computed in 64 bits so large sensor
// resolutions cannot overflow.
func (s Size) Area() int64 {
	return int64(s.Width) * int64(s.Height)
}

// Swap returns the size with width and height exchanged.
func (s Size) Swap() Size {
	return Size{Width: s.Height, Height: s.Width}
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ParseSize parses "WIDTHxHEIGHT" (an upper-case X or "*" also separate).
func ParseSize(s string) (Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		w, h, ok = strings.Cut(strings.TrimSpace(s), "*")
	}
	if !ok {
		return Size{}, fmt.Errorf("invalid size %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return Size{}, fmt.Errorf("invalid size %q: %w", s, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return Size{}, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return Size{}, fmt.Errorf("invalid size %q: dimensions must be positive", s)
	}
	return Size{Width: width, Height: height}, nil
}

// ParseSizes parses a list of sizes, failing on the first invalid entry.
func ParseSizes(list []string) ([]Size, error) {
	sizes := make([]Size, 0, len(list))
	for _, s := range list {
		size, err := ParseSize(s)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

// matchesAspect reports whether s has exactly the aspect ratio of ref,
// using the same integer test as the camera HAL: h == w*ref.h/ref.w.
func (s Size) matchesAspect(ref Size) bool {
	if ref.Width == 0 {
		return false
	}
	return int64(s.Height) == int64(s.Width)*int64(ref.Height)/int64(ref.Width)
}

// ChooseOptimal returns the smallest candidate whose aspect ratio matches
// aspect exactly and whose dimensions are at least minWidth x minHeight.
// When nothing qualifies it returns aspect itself together with
// ErrNoSuitableSize.
func ChooseOptimal(choices []Size, minWidth, minHeight int, aspect Size) (Size, error) {
	var best Size
	found := false
	for _, option := range choices {
		if !option.matchesAspect(aspect) || option.Width < minWidth || option.Height < minHeight {
			continue
		}
		if !found || option.Area() < best.Area() {
			best = option
			found = true
		}
	}

	if !found {
		return aspect, fmt.Errorf("%w: want %s aspect at least %dx%d among %d candidates",
			ErrNoSuitableSize, aspect, minWidth, minHeight, len(choices))
	}
	return best, nil
}

// ChooseVideo returns the first candidate with a 4:3 ratio (w == h*4/3)
// no wider than maxWidth. When none match, the last candidate in
// enumeration order is returned together with ErrNoSuitableSize.
func ChooseVideo(choices []Size, maxWidth int) (Size, error) {
	if len(choices) == 0 {
		return Size{}, ErrNoCandidates
	}
	for _, size := range choices {
		if size.Width == size.Height*4/3 && size.Width <= maxWidth {
			return size, nil
		}
	}
	last := choices[len(choices)-1]
	return last, fmt.Errorf("%w: no 4:3 size up to width %d, using last candidate %s",
		ErrNoSuitableSize, maxWidth, last)
}

// Largest returns the candidate with the biggest area.
func Largest(choices []Size) (Size, error) {
	if len(choices) == 0 {
		return Size{}, ErrNoCandidates
	}
	largest := choices[0]
	for _, c := range choices[1:] {
		if c.Area() > largest.Area() {
			largest = c
		}
	}
	return largest, nil
}

// Package version implements the dotted version model used by target rules.
//
// A version is a sequence of epochs, one per dot separated component. An
// epoch is either a point ("49") or a range ("46-52", lower bound inclusive,
// upper bound exclusive).
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnalignedSpan is returned by Check for a span of two complete versions
// whose leading components differ, such as "2.4.46-3.0.1". Such a text is
// parsed component by component and never matches a version of its length.
var ErrUnalignedSpan = errors.New("span bounds differ in their leading component")

// Epoch is one component of a version
type Epoch struct {
	Lower int
	Upper int
	Range bool
}

// Point returns an exact epoch
func Point(n int) Epoch {
	return Epoch{Lower: n, Upper: n}
}

// Span returns a range epoch covering [lower, upper)
func Span(lower, upper int) Epoch {
	return Epoch{Lower: lower, Upper: upper, Range: true}
}

// Contains reports whether n falls inside the epoch
func (e Epoch) Contains(n int) bool {
	if e.Range {
		return e.Lower <= n && n < e.Upper
	}
	return e.Lower == n
}

func (e Epoch) String() string {
	if e.Range {
		return strconv.Itoa(e.Lower) + "-" + strconv.Itoa(e.Upper)
	}
	return strconv.Itoa(e.Lower)
}

// Version is an ordered sequence of epochs
type Version struct {
	epochs []Epoch
}

// New builds a version from epochs
func New(epochs ...Epoch) Version {
	return Version{epochs: epochs}
}

// Parse parses text into a version. Components that hold no integer are
// dropped, so parsing never fails.
func Parse(text string) Version {
	text = strings.TrimSpace(text)
	if epochs, ok := parseSpanning(text); ok {
		return Version{epochs: epochs}
	}

	var epochs []Epoch
	for _, component := range strings.Split(text, ".") {
		if epoch, ok := parseEpoch(component); ok {
			epochs = append(epochs, epoch)
		}
	}
	return Version{epochs: epochs}
}

// Check reports whether text is usable as a specification. It must hold at
// least one integer component, and a span of two complete versions must
// share its leading component.
func Check(text string) error {
	if lower, upper, ok := spanBounds(strings.TrimSpace(text)); ok &&
		strings.TrimSpace(lower[0]) != strings.TrimSpace(upper[0]) {
		return fmt.Errorf("%q: %w", text, ErrUnalignedSpan)
	}
	if Parse(text).IsZero() {
		return fmt.Errorf("%q: no version components", text)
	}
	return nil
}

// spanBounds splits "2.4.46-2.4.52" into the components of both bounds. It
// returns false unless a single hyphen separates two dotted versions with
// the same number of components.
func spanBounds(text string) ([]string, []string, bool) {
	bounds := strings.Split(text, "-")
	if len(bounds) != 2 {
		return nil, nil, false
	}

	lower := strings.Split(bounds[0], ".")
	upper := strings.Split(bounds[1], ".")
	if len(lower) < 2 || len(lower) != len(upper) {
		return nil, nil, false
	}
	return lower, upper, true
}

// parseSpanning handles "2.4.46-2.4.52". Only bounds that share their
// leading component are spanned; "2.4.46-3.0.1" falls back to per component
// parsing and is rejected by Check.
func parseSpanning(text string) ([]Epoch, bool) {
	lower, upper, ok := spanBounds(text)
	if !ok || strings.TrimSpace(lower[0]) != strings.TrimSpace(upper[0]) {
		return nil, false
	}

	epochs := make([]Epoch, 0, len(lower))
	for i := range lower {
		lo, errLo := parseInt(lower[i])
		hi, errHi := parseInt(upper[i])
		switch {
		case errLo != nil && errHi != nil:
			continue
		case errLo != nil:
			epochs = append(epochs, Point(hi))
		case errHi != nil || lo == hi:
			epochs = append(epochs, Point(lo))
		default:
			epochs = append(epochs, Span(lo, hi))
		}
	}
	return epochs, true
}

func parseEpoch(component string) (Epoch, bool) {
	var numbers []int
	for _, part := range strings.Split(component, "-") {
		if n, err := parseInt(part); err == nil {
			numbers = append(numbers, n)
		}
	}

	switch len(numbers) {
	case 0:
		return Epoch{}, false
	case 1:
		return Point(numbers[0]), true
	default:
		return Span(numbers[0], numbers[len(numbers)-1]), true
	}
}

func parseInt(s string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 31)
	return int(n), err
}

// Epochs returns a copy of the epochs
func (v Version) Epochs() []Epoch {
	return append([]Epoch(nil), v.epochs...)
}

// Len returns the number of epochs
func (v Version) Len() int {
	return len(v.epochs)
}

// IsZero reports whether no component could be parsed
func (v Version) IsZero() bool {
	return len(v.epochs) == 0
}

// Contains reports whether observed falls inside v, read as a vulnerable
// specification. Both versions must have the same number of epochs. Range
// epochs of observed carry no single value and are left out of the
// comparison, which shifts the positions compared after them.
func (v Version) Contains(observed Version) bool {
	if observed.IsZero() || len(v.epochs) != len(observed.epochs) {
		return false
	}

	values := observed.points()
	for i, value := range values {
		if !v.epochs[i].Contains(value) {
			return false
		}
	}
	return true
}

func (v Version) points() []int {
	values := make([]int, 0, len(v.epochs))
	for _, epoch := range v.epochs {
		if !epoch.Range {
			values = append(values, epoch.Lower)
		}
	}
	return values
}

func (v Version) String() string {
	parts := make([]string, len(v.epochs))
	for i, epoch := range v.epochs {
		parts[i] = epoch.String()
	}
	return strings.Join(parts, ".")
}

package classify

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode selects the classification strategy.
type Mode int

const (
	// ModeACGold selects ticket runs that start on a qualifying trade page.
	ModeACGold Mode = iota + 1
	// ModeBMD counts keyword occurrences and selects the whole document.
	ModeBMD
)

// ErrInvalidMode is returned when a mode name is not recognised.
var ErrInvalidMode = errors.New("invalid scan mode")

var upper = cases.Upper(language.Und)

// String returns the canonical mode name.
func (m Mode) String() string {
	switch m {
	case ModeACGold:
		return "ACGOLD"
	case ModeBMD:
		return "BMD"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeACGold || m == ModeBMD
}

// ParseMode parses a mode name case-insensitively ("acgold", "AC-Gold" and "BMD" are accepted).
func ParseMode(s string) (Mode, error) {
	name := strings.NewReplacer("-", "", "_", "", " ", "").Replace(upper.String(strings.TrimSpace(s)))
	switch name {
	case "ACGOLD":
		return ModeACGold, nil
	case "BMD":
		return ModeBMD, nil
	default:
		return 0, fmt.Errorf("%w: %q (must be ACGOLD or BMD)", ErrInvalidMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

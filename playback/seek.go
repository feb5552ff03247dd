package playback

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var ErrInvalidTimestamp = errors.New("timestamp must be mm:ss or ss, optionally prefixed with + or -")

// Timestamp is a parsed seek argument. Relative offsets are signed.
type Timestamp struct {
	Relative bool
	Offset   time.Duration
}

// ParseTimestamp accepts "mm:ss" or "ss", with a leading + or - for relative seeks.
// When minutes are given the seconds part must be below 60.
func ParseTimestamp(raw string) (Timestamp, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Timestamp{}, ErrInvalidTimestamp
	}

	var ts Timestamp
	sign := time.Duration(1)
	switch value[0] {
	case '+', '-':
		if len(value) == 1 {
			return Timestamp{}, ErrInvalidTimestamp
		}
		ts.Relative = true
		if value[0] == '-' {
			sign = -1
		}
		value = value[1:]
	}

	secs, err := parseSeconds(value)
	if err != nil {
		return Timestamp{}, err
	}
	ts.Offset = sign * time.Duration(secs) * time.Second
	return ts, nil
}

func parseSeconds(value string) (uint64, error) {
	if !strings.Contains(value, ":") {
		s, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidTimestamp, "%q", value)
		}
		return s, nil
	}

	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "%q", value)
	}
	m, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "%q", value)
	}
	s, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil || s >= 60 {
		return 0, errors.Wrapf(ErrInvalidTimestamp, "%q", value)
	}
	return m*60 + s, nil
}

// Target resolves the timestamp against the current position and checks it lies in [0, length).
// An unknown length only bounds the target from below.
func (ts Timestamp) Target(position, length time.Duration, lengthKnown bool) (time.Duration, bool) {
	target := ts.Offset
	if ts.Relative {
		target = position + ts.Offset
	}
	if target < 0 {
		return 0, false
	}
	if lengthKnown && target >= length {
		return 0, false
	}
	return target, true
}

package input

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"alarmd/internal/alarm"
)

// ErrBadCommand tags every parse rejection. Specific causes wrap it.
var ErrBadCommand = errors.New("bad command")

// ParseLine parses one submission of the form "<integer delay> <message>".
//
// The delay is whole seconds; zero and negative values are legal and produce
// an immediately due alarm. The message is the rest of the line, spaces
// included, capped at alarm.MaxMessageLen characters. Callers skip blank
// lines before calling ParseLine.
func ParseLine(line string, now time.Time) (alarm.Request, error) {
	s := strings.TrimSpace(line)
	if s == "" {
		return alarm.Request{}, fmt.Errorf("%w: empty line", ErrBadCommand)
	}

	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return alarm.Request{}, fmt.Errorf("%w: missing message", ErrBadCommand)
	}

	delay, err := strconv.Atoi(s[:i])
	if err != nil {
		return alarm.Request{}, fmt.Errorf("%w: delay %q is not an integer", ErrBadCommand, s[:i])
	}

	req, err := alarm.NewRequest(now, time.Duration(delay)*time.Second, s[i+1:])
	if err != nil {
		return alarm.Request{}, fmt.Errorf("%w: %v", ErrBadCommand, err)
	}
	return req, nil
}

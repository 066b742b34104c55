// Package input reads alarm submissions line by line and inserts the valid
// ones into the queue. It is the producer side of the core: the only other
// goroutine touching the queue besides the worker.
package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"alarmd/internal/alarm"
	logx "alarmd/pkg/logx"
)

// maxLineBytes bounds a single input line. Anything longer is rejected like
// any other malformed submission and discarded up to the next newline, so a
// runaway line cannot take the loop down.
const maxLineBytes = 4096

var errLineTooLong = errors.New("input line too long")

// Submitter is the slice of the queue the producer needs.
// *alarm.Queue satisfies it.
type Submitter interface {
	Insert(r alarm.Request)
}

type Config struct {
	// Prompt writes "alarm> " before each read.
	Prompt bool
}

// Reader drives the input loop.
type Reader struct {
	cfg   Config
	log   logx.Logger
	queue Submitter

	in   io.Reader
	out  io.Writer // prompt
	errw io.Writer // rejection diagnostics

	now func() time.Time
}

func New(cfg Config, queue Submitter, in io.Reader, out, errw io.Writer, log logx.Logger) *Reader {
	return &Reader{
		cfg:   cfg,
		log:   log,
		queue: queue,
		in:    in,
		out:   out,
		errw:  errw,
		now:   time.Now,
	}
}

// Run reads until end of input or ctx cancellation.
//
// Blank lines are skipped. Malformed lines get a diagnostic on the error
// stream and queue nothing; the loop continues. End of input returns nil:
// the caller terminates the process immediately, pending alarms included.
func (r *Reader) Run(ctx context.Context) error {
	br := bufio.NewReader(r.in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.cfg.Prompt {
			fmt.Fprint(r.out, "alarm> ")
		}

		line, err := readLine(br)
		if errors.Is(err, errLineTooLong) {
			fmt.Fprintln(r.errw, "bad command")
			r.log.Debug("submission rejected", logx.Err(err))
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		if strings.TrimSpace(line) != "" {
			req, perr := ParseLine(line, r.now())
			if perr != nil {
				fmt.Fprintln(r.errw, "bad command")
				r.log.Debug("submission rejected", logx.Err(perr))
			} else {
				r.queue.Insert(req)
				r.log.Debug("alarm queued",
					logx.Time("fire_at", req.FireAt),
					logx.Duration("delay", req.Remaining(r.now())),
				)
			}
		}
		if eof {
			break
		}
	}
	r.log.Info("end of input")
	return nil
}

// readLine returns the next line without its trailing newline, accumulating
// across buffer refills up to maxLineBytes. Past that it drains the rest of
// the line and reports errLineTooLong. io.EOF accompanies a final unterminated
// line.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		frag, err := br.ReadSlice('\n')
		buf = append(buf, frag...)
		if len(buf) > maxLineBytes {
			if err == bufio.ErrBufferFull {
				if derr := discardLine(br); derr != nil && derr != io.EOF {
					return "", derr
				}
			}
			return "", errLineTooLong
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return strings.TrimRight(string(buf), "\r\n"), err
	}
}

// discardLine consumes input through the next newline.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		return err
	}
}

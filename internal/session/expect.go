package session

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"sync"
	"time"
)

var ErrExpectTimeout = errors.New("expect timeout")
var ErrClosed = errors.New("connection closed")

// expecter matches regular expressions against a byte stream as it arrives.
// A background goroutine owns the blocking Read; expect consumes from the
// accumulated buffer so a pattern split across reads still matches.
type expecter struct {
	data    chan []byte
	readErr chan error
	done    chan struct{}
	stop    sync.Once
	buf     bytes.Buffer
	dead    bool
}

func newExpecter(r io.Reader) *expecter {
	e := &expecter{
		data:    make(chan []byte, 32),
		readErr: make(chan error, 1),
		done:    make(chan struct{}),
	}
	go func() {
		for {
			chunk := make([]byte, 8192)
			n, err := r.Read(chunk)
			if n > 0 {
				select {
				case e.data <- chunk[:n]:
				case <-e.done:
					return
				}
			}
			if err != nil {
				e.readErr <- err
				close(e.data)
				return
			}
		}
	}()
	return e
}

// close releases the reader goroutine. Without it a device that floods the
// channel buffer before the transport Close surfaces as a Read error would
// keep the reader parked on the send forever.
func (e *expecter) close() {
	e.stop.Do(func() { close(e.done) })
}

type match struct {
	index  int    // which pattern matched
	before string // everything preceding the match
	text   string // the matched text itself
}

// expect blocks until one of the patterns matches the stream, the timeout
// elapses, or the stream closes. On a match the buffer is consumed through
// the end of the matched text. When several patterns match, the one starting
// earliest in the stream wins; ties go to the lower pattern index.
func (e *expecter) expect(timeout time.Duration, patterns ...*regexp.Regexp) (match, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if m, ok := e.find(patterns); ok {
			return m, nil
		}
		if e.dead {
			rest := e.buf.String()
			e.buf.Reset()
			return match{index: -1, before: rest}, ErrClosed
		}

		select {
		case chunk, ok := <-e.data:
			if !ok {
				e.dead = true
				continue
			}
			e.buf.Write(chunk)
		case <-deadline.C:
			return match{index: -1, before: e.buf.String()}, ErrExpectTimeout
		}
	}
}

func (e *expecter) find(patterns []*regexp.Regexp) (match, bool) {
	data := e.buf.Bytes()
	best := -1
	var bestLoc []int
	for i, p := range patterns {
		loc := p.FindIndex(data)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < bestLoc[0] {
			best = i
			bestLoc = loc
		}
	}
	if best == -1 {
		return match{}, false
	}

	m := match{
		index:  best,
		before: string(data[:bestLoc[0]]),
		text:   string(data[bestLoc[0]:bestLoc[1]]),
	}
	e.buf.Next(bestLoc[1])
	return m, true
}

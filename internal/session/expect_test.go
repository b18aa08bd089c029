package session

import (
	"errors"
	"io"
	"regexp"
	"runtime"
	"testing"
	"time"
)

// chunkReader feeds scripted chunks one Read at a time, then EOF.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestExpectMatch(t *testing.T) {
	e := newExpecter(&chunkReader{chunks: [][]byte{[]byte("some output\r\nswitch1#")}})

	m, err := e.expect(time.Second, regexp.MustCompile(`switch1#`))
	if err != nil {
		t.Fatalf("expect() error = %v", err)
	}
	if m.before != "some output\r\n" {
		t.Errorf("before = %q", m.before)
	}
	if m.text != "switch1#" {
		t.Errorf("text = %q", m.text)
	}
}

func TestExpectPatternSplitAcrossReads(t *testing.T) {
	e := newExpecter(&chunkReader{chunks: [][]byte{
		[]byte("swit"),
		[]byte("ch1#"),
	}})

	m, err := e.expect(time.Second, regexp.MustCompile(`switch1#`))
	if err != nil {
		t.Fatalf("expect() error = %v", err)
	}
	if m.text != "switch1#" {
		t.Errorf("text = %q", m.text)
	}
}

func TestExpectEarliestMatchWins(t *testing.T) {
	e := newExpecter(&chunkReader{chunks: [][]byte{[]byte("Username: then Password:")}})

	// Password pattern is listed first, but Username appears earlier in the
	// stream and must win.
	m, err := e.expect(time.Second, regexp.MustCompile(`assword:`), regexp.MustCompile(`sername:`))
	if err != nil {
		t.Fatalf("expect() error = %v", err)
	}
	if m.index != 1 {
		t.Errorf("index = %d, want 1 (earliest match in stream)", m.index)
	}
}

func TestExpectConsumesThroughMatch(t *testing.T) {
	e := newExpecter(&chunkReader{chunks: [][]byte{[]byte("line1\r\nline2\r\n")}})

	newline := regexp.MustCompile(`.*\r\n`)
	m1, err := e.expect(time.Second, newline)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := e.expect(time.Second, newline)
	if err != nil {
		t.Fatal(err)
	}
	if m1.text != "line1\r\n" || m2.text != "line2\r\n" {
		t.Errorf("matches = %q, %q; buffer not consumed in order", m1.text, m2.text)
	}
}

func TestExpectTimeout(t *testing.T) {
	e := newExpecter(&chunkReader{chunks: [][]byte{[]byte("no prompt here")}})

	_, err := e.expect(20*time.Millisecond, regexp.MustCompile(`switch1#`))
	if !errors.Is(err, ErrExpectTimeout) {
		t.Errorf("expect() error = %v, want ErrExpectTimeout", err)
	}
}

func TestExpectClosedStream(t *testing.T) {
	e := newExpecter(&chunkReader{}) // immediate EOF

	_, err := e.expect(time.Second, regexp.MustCompile(`anything`))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expect() error = %v, want ErrClosed", err)
	}
}

// floodReader never errors and always has data, like a device spewing output
// faster than anyone consumes it.
type floodReader struct{}

func (floodReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestCloseReleasesReader(t *testing.T) {
	before := runtime.NumGoroutine()
	e := newExpecter(floodReader{})
	e.close()

	deadline := time.After(2 * time.Second)
	for runtime.NumGoroutine() > before {
		select {
		case <-deadline:
			t.Fatal("reader goroutine still running after close")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// Package sink implements ResultSink: the single-writer CSV output side of
// every command, one schema per result kind. Every writer flushes after
// each row so that partial output survives an interrupt (§4.8).
package sink

import (
	"bufio"
	"fmt"
	"io"
)

// csvWriter is the shared plumbing every concrete *Sink wraps: a buffered
// writer that is flushed after every row, never batched across rows.
type csvWriter struct {
	w   *bufio.Writer
	err error
}

func newCSVWriter(w io.Writer) *csvWriter {
	return &csvWriter{w: bufio.NewWriter(w)}
}

func (c *csvWriter) writeLine(format string, args ...interface{}) error {
	if c.err != nil {
		return c.err
	}
	if _, err := fmt.Fprintf(c.w, format+"\n", args...); err != nil {
		c.err = err
		return err
	}
	if err := c.w.Flush(); err != nil {
		c.err = err
		return err
	}
	return nil
}

// quote wraps s in double quotes, matching the manifest/name-column
// convention used throughout this engine's CSV output.
func quote(s string) string {
	return `"` + s + `"`
}

// Package lines splits streamed command output into lines.
package lines

import (
	"bufio"
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// MaxLength is the longest line delivered. Longer lines are dropped whole.
const MaxLength = 1024 * 1024

// Copy sends each line of r to out, without its line ending, until r is
// exhausted or ctx is done. An over-long line is logged and skipped; reading
// resumes at the next line.
func Copy(ctx context.Context, r io.Reader, out chan<- string, log logrus.FieldLogger) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	skipping := false
	for n := 1; ; {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if !skipping {
			if len(buf)+len(chunk) > MaxLength {
				skipping = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		if skipping {
			log.WithField("line", n).Warnf("Dropped line longer than %d bytes", MaxLength)
			skipping = false
			n++
			continue
		}
		line := string(buf)
		buf = buf[:0]
		n++
		select {
		case out <- line:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

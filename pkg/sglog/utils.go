package sglog

import (
	"fmt"
	"io"
	"os"
)

// newWriter returns stdout for an empty path, otherwise the file opened in
// append mode. When the file cannot be opened the logger falls back to
// stderr instead of aborting the process.
func newWriter(filepath string) (*os.File, io.Writer) {
	if filepath == "" {
		return nil, os.Stdout
	}
	f, err := os.OpenFile(filepath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sglog: failed to open log file %s: %v\n", filepath, err)
		return nil, os.Stderr
	}
	return f, f
}

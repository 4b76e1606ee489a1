package cli

import (
	"fmt"
	"io"
)

const (
	progressLineFormat = "\r[%3.0f%%] %s"
	progressComplete   = 100.0
)

// terminalProgress renders runner progress on a single rewritten terminal line.
type terminalProgress struct {
	writer      io.Writer
	percent     float64
	lineWritten bool
}

func newTerminalProgress(writer io.Writer) *terminalProgress {
	return &terminalProgress{writer: writer}
}

func (progress *terminalProgress) Report(message string, incrementPercent float64) {
	progress.percent += incrementPercent
	if progress.percent > progressComplete {
		progress.percent = progressComplete
	}
	fmt.Fprintf(progress.writer, progressLineFormat, progress.percent, message)
	progress.lineWritten = true
}

// Done terminates the progress line, if one was written.
func (progress *terminalProgress) Done() {
	if progress.lineWritten {
		fmt.Fprintln(progress.writer)
		progress.lineWritten = false
	}
}

// notifier delivers the user-facing messages of a command.
type notifier struct {
	writer io.Writer
}

func (notifier notifier) Info(format string, arguments ...any) {
	fmt.Fprintf(notifier.writer, format+"\n", arguments...)
}

func (notifier notifier) Warn(format string, arguments ...any) {
	fmt.Fprintf(notifier.writer, "Warning: "+format+"\n", arguments...)
}

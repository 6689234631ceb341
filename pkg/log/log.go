// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log renders per-file transfer progress on the console and mirrors
// it into structured zerolog output.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent = 4  // spaces to indent transfer entries
	nameWidth  = 45 // base width for the source path
	sizeWidth  = 12 // width for the byte count
)

// 🎯 TransferOperation represents one file transfer for logging
type TransferOperation struct {
	Source  string // Source relative path
	Dest    string // Destination key
	Bytes   int64  // Bytes written to the destination
	Rows    int    // Rows processed
	Skipped bool   // Whether the file was skipped before processing
	Err     error  // Failure, if any
}

// 📦 JobOperation represents one job run for logging
type JobOperation struct {
	RunID       string // Unique id for this run
	Source      string // Source root
	Destination string // Destination root
	Files       int    // Number of files listed
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	currentOp *JobOperation
	transfers []TransferOperation
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatTransfer formats a transfer for display
func (l *Logger) formatTransfer(op TransferOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	var status string
	switch {
	case op.Err != nil:
		symbol = '✗'
		symbolColor = color.FgRed
		status = op.Err.Error()
	case op.Skipped:
		symbol = '-'
		symbolColor = color.FgYellow
		status = "skipped"
	default:
		symbol = '✓'
		symbolColor = color.FgGreen
		status = fmt.Sprintf("uploaded (%d rows)", op.Rows)
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Source),
		fmt.Sprintf("%*d", sizeWidth, op.Bytes),
		status)
}

// 📝 LogTransfer logs one file transfer
func (l *Logger) LogTransfer(ctx context.Context, op TransferOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.transfers = append(l.transfers, op)

	fmt.Fprintln(l.console, l.formatTransfer(op))

	event := l.zlog.Info()
	if op.Err != nil {
		event = l.zlog.Error().Err(op.Err)
	}
	event.
		Str("source", op.Source).
		Str("dest", op.Dest).
		Int64("bytes", op.Bytes).
		Int("rows", op.Rows).
		Bool("skipped", op.Skipped).
		Msg("file transfer")
}

// 📝 StartJob starts a new job operation
func (l *Logger) StartJob(ctx context.Context, op JobOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.transfers = nil

	fmt.Fprintf(l.console, "[anonymizing %s]\n",
		color.New(color.FgCyan).Sprint(op.Source))

	fmt.Fprintf(l.console, "%s %s %s %d files\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.Destination),
		color.New(color.Faint).Sprint("•"),
		op.Files)

	l.zlog.Info().
		Str("run_id", op.RunID).
		Str("source", op.Source).
		Str("destination", op.Destination).
		Int("files", op.Files).
		Msg("starting job")
}

// 📝 EndJob ends the current job operation
func (l *Logger) EndJob(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	failed := 0
	for _, op := range l.transfers {
		if op.Err != nil {
			failed++
		}
	}

	l.zlog.Info().
		Str("run_id", l.currentOp.RunID).
		Int("files", len(l.transfers)).
		Int("failed", failed).
		Msg("job complete")

	l.currentOp = nil
	l.transfers = nil
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("anonpipe")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

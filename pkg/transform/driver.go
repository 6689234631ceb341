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

package transform

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/walteh/anonpipe/pkg/pipe"
	"github.com/walteh/anonpipe/pkg/sink"
	"github.com/walteh/anonpipe/pkg/source"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// ❌ SourceOpenError reports a file that could not be opened or whose first
// row could not be parsed as CSV.
type SourceOpenError struct {
	Path string
	Err  error
}

func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("opening source %s: %v", e.Path, e.Err)
}

func (e *SourceOpenError) Unwrap() error {
	return e.Err
}

// ❌ EmptyFileError reports an input file with zero rows.
type EmptyFileError struct {
	Path string
}

func (e *EmptyFileError) Error() string {
	return fmt.Sprintf("input file %s is empty", e.Path)
}

// 🔧 Options configures a Driver.
type Options struct {
	// ChunkSize is the pipe and upload chunk size (default 1024)
	ChunkSize int
	// ContentType is recorded on destination objects (default "text/csv")
	ContentType string
	// Decode configures the decompression/decryption chain
	Decode source.DecodeOptions
}

// 📊 Result describes one completed transfer.
type Result struct {
	Key          string
	BytesWritten int64
	Rows         int
}

// 🎮 Driver moves one file at a time through the pipeline: source stream →
// CSV rows → per-row transform → framed CSV bytes → bounded pipe → chunked
// store upload. The transform producer and the upload consumer run as two
// goroutines joined by the pipe.
type Driver struct {
	transformer *Transformer
	store       sink.Store
	opts        Options
}

// 🏭 NewDriver creates a driver writing to the given store.
func NewDriver(transformer *Transformer, store sink.Store, opts Options) *Driver {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = pipe.DefaultChunkSize
	}
	if opts.ContentType == "" {
		opts.ContentType = "text/csv"
	}
	return &Driver{transformer: transformer, store: store, opts: opts}
}

// 🚚 Transfer streams one file to the destination key. Row order is
// preserved; any row-level error aborts the file with nothing committed.
// The error identifies the file, and row/column where applicable.
func (d *Driver) Transfer(ctx context.Context, provider source.Provider, desc source.Descriptor, destKey string) (Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("file", desc.RelativePath).Str("dest", destKey).Msg("starting transfer")

	rc, err := provider.Open(ctx, desc.FullPath)
	if err != nil {
		return Result{}, &SourceOpenError{Path: desc.FullPath, Err: err}
	}

	decoded, _, err := source.Decode(rc, desc.FileName, d.opts.Decode)
	if err != nil {
		return Result{}, &SourceOpenError{Path: desc.FullPath, Err: err}
	}
	defer decoded.Close()

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	// The first record is read before any sink interaction so that empty
	// and unparseable files never open a destination writer.
	first, err := reader.Read()
	if err == io.EOF {
		return Result{}, &EmptyFileError{Path: desc.FullPath}
	}
	if err != nil {
		return Result{}, &SourceOpenError{Path: desc.FullPath, Err: err}
	}

	p := pipe.New(d.opts.ChunkSize)
	g, gctx := errgroup.WithContext(ctx)

	var rows int
	g.Go(func() error {
		err := d.produce(gctx, reader, first, p, &rows)
		// A nil error closes the pipe cleanly; a failure travels to the
		// consumer through the pipe's close semantics as well as through
		// the group result below.
		p.CloseWrite(err)
		return err
	})

	var written int64
	g.Go(func() error {
		n, err := sink.Upload(gctx, p, d.store, destKey, d.opts.ContentType, d.opts.ChunkSize)
		written = n
		if err != nil {
			// Release a producer blocked on a full pipe.
			p.CloseRead(err)
		}
		return err
	})

	// The group result is the explicit completion signal; the transfer is
	// not successful until both tasks have reported in.
	if err := g.Wait(); err != nil {
		return Result{Key: destKey, BytesWritten: written, Rows: rows}, errors.Errorf("transferring %s: %w", desc.RelativePath, err)
	}

	logger.Debug().Str("file", desc.RelativePath).Int64("bytes", written).Int("rows", rows).Msg("transfer complete")
	return Result{Key: destKey, BytesWritten: written, Rows: rows}, nil
}

// produce drives rows from the parser through the transformer into the pipe
// in file order. first is the pre-read opening record.
func (d *Driver) produce(ctx context.Context, reader *csv.Reader, first []string, w io.Writer, rows *int) error {
	writer := csv.NewWriter(w)

	record := first
	line := 0
	for {
		line++
		out, err := d.transformer.TransformRecord(record, line)
		if err != nil {
			return err
		}
		if err := writer.Write(out); err != nil {
			return errors.Errorf("framing line %d: %w", line, err)
		}
		*rows = line

		// Flush row by row so the consumer sees bytes as they are
		// produced rather than in one burst at the end.
		writer.Flush()
		if err := writer.Error(); err != nil {
			return errors.Errorf("writing line %d: %w", line, err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		record, err = reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Errorf("parsing line %d: %w", line+1, err)
		}
	}
}

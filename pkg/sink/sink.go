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

// Package sink provides the destination-store capability and the chunked
// upload loop that drains a transformed stream into it. Objects become
// visible only on Commit; any failure aborts the write so a truncated or
// partially-anonymized object is never observable as complete.
package sink

import (
	"context"
	"io"

	"gitlab.com/tozd/go/errors"
)

// DefaultChunkSize is the upload chunk size used when none is configured.
const DefaultChunkSize = 1024

// 🔌 Store is the interface for destination object stores. Implementations
// must be safe for concurrent use across files.
type Store interface {
	// Name returns the name of the store (e.g. "dir")
	Name() string
	// NewWriter opens a chunked writable stream for one destination key
	NewWriter(ctx context.Context, key, contentType string) (WriteCommitter, error)
}

// ✍️ WriteCommitter is one in-flight object write. Commit makes the object
// visible atomically; Abort rolls the write back. Exactly one of the two is
// called, after which the writer is spent.
type WriteCommitter interface {
	io.Writer
	Commit() error
	Abort() error
}

// 📤 Upload drains r into the store in fixed-size chunks, in order, without
// buffering the whole object. On a read error (including an error propagated
// through the pipe's close semantics) or a write error the upload is aborted
// and the error returned; on a clean end-of-stream the object is committed.
// The returned count is the number of bytes handed to the store.
func Upload(ctx context.Context, r io.Reader, store Store, key, contentType string, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	w, err := store.NewWriter(ctx, key, contentType)
	if err != nil {
		return 0, errors.Errorf("opening writer for %q: %w", key, err)
	}

	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			abort(w)
			return written, errors.Errorf("uploading %q: %w", key, err)
		}

		n, rerr := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				abort(w)
				return written, errors.Errorf("writing chunk to %q: %w", key, werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			abort(w)
			return written, errors.Errorf("reading stream for %q: %w", key, rerr)
		}
	}

	if err := w.Commit(); err != nil {
		abort(w)
		return written, errors.Errorf("committing %q: %w", key, err)
	}
	return written, nil
}

// abort rolls back a failed write; the abort error is secondary to the one
// being returned, so it is dropped.
func abort(w WriteCommitter) {
	_ = w.Abort()
}

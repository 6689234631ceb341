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

// Package pipe provides a bounded single-producer single-consumer byte
// conduit with backpressure and closed-with-error semantics. It connects the
// row-transform producer to the sink-upload consumer so that a file of any
// size streams through a fixed amount of memory.
package pipe

import (
	"io"
	"sync"
)

// DefaultChunkSize is the per-chunk buffer size used when none is configured.
const DefaultChunkSize = 1024

// backlogChunks bounds how many chunks may sit between the producer and the
// consumer. Peak pipe memory is (backlogChunks+1) * chunk size.
const backlogChunks = 4

// 🚰 Pipe is a bounded byte conduit. The producer calls Write and finally
// CloseWrite; the consumer calls Read and, if it dies early, CloseRead so the
// producer unblocks instead of stalling on a full buffer forever.
//
// Bytes are delivered in write order, exactly once. After CloseWrite(nil) the
// reader drains the buffered bytes and then sees io.EOF; after
// CloseWrite(err) it drains and then sees err, so a transform failure is
// never mistaken for a clean end-of-stream.
//
// Write/CloseWrite must be called from a single goroutine, as must
// Read/CloseRead.
type Pipe struct {
	chunkSize int

	ch chan []byte

	werr    error // delivered to the reader once ch is drained; set before close(ch)
	wclosed bool  // producer side only

	rerr      error // delivered to the writer; set before close(rclosed)
	rclosed   chan struct{}
	closeOnce sync.Once

	rest []byte // consumer side only: unread remainder of the current chunk
}

// 🏭 New creates a pipe with the given chunk size. Non-positive sizes fall
// back to DefaultChunkSize.
func New(chunkSize int) *Pipe {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Pipe{
		chunkSize: chunkSize,
		ch:        make(chan []byte, backlogChunks),
		rclosed:   make(chan struct{}),
	}
}

// ChunkSize returns the configured chunk size.
func (p *Pipe) ChunkSize() int {
	return p.chunkSize
}

// ✍️ Write copies b into the pipe in chunks, blocking while the buffer is
// full. It fails once the read end has been closed.
func (p *Pipe) Write(b []byte) (int, error) {
	if p.wclosed {
		return 0, io.ErrClosedPipe
	}

	written := 0
	for len(b) > 0 {
		n := len(b)
		if n > p.chunkSize {
			n = p.chunkSize
		}
		chunk := make([]byte, n)
		copy(chunk, b[:n])

		select {
		case <-p.rclosed:
			return written, p.rerr
		case p.ch <- chunk:
			written += n
			b = b[n:]
		}
	}
	return written, nil
}

// 🔒 CloseWrite closes the write end. A nil err means a clean end-of-stream;
// a non-nil err is surfaced to the reader after the buffered bytes drain.
// Only the first close takes effect.
func (p *Pipe) CloseWrite(err error) {
	if p.wclosed {
		return
	}
	p.wclosed = true
	p.werr = err
	close(p.ch)
}

// 📖 Read copies buffered bytes into b, blocking until data arrives or the
// write end closes. Once the pipe is drained it returns io.EOF after a clean
// close, or the error passed to CloseWrite.
func (p *Pipe) Read(b []byte) (int, error) {
	if len(p.rest) > 0 {
		n := copy(b, p.rest)
		p.rest = p.rest[n:]
		return n, nil
	}

	select {
	case <-p.rclosed:
		return 0, io.ErrClosedPipe
	default:
	}

	select {
	case chunk, ok := <-p.ch:
		if !ok {
			if p.werr != nil {
				return 0, p.werr
			}
			return 0, io.EOF
		}
		n := copy(b, chunk)
		p.rest = chunk[n:]
		return n, nil
	case <-p.rclosed:
		return 0, io.ErrClosedPipe
	}
}

// 🔒 CloseRead abandons the read end. Pending and future writes fail with
// err (io.ErrClosedPipe when err is nil), so a producer blocked on a full
// buffer is released when the consumer dies. Only the first close takes
// effect.
func (p *Pipe) CloseRead(err error) {
	p.closeOnce.Do(func() {
		if err == nil {
			err = io.ErrClosedPipe
		}
		p.rerr = err
		close(p.rclosed)
	})
}

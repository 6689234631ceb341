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

package sink

import (
	"context"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// 💾 DirStore is a destination store backed by a local directory. Uploads
// stream into a hidden temp file next to the target; Commit renames it into
// place (atomic on POSIX filesystems) and Abort removes it, so a partial
// object is never visible under its destination key.
type DirStore struct {
	root string
}

// 🏭 NewDirStore creates the store, creating the root directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving store root %q: %w", root, err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, errors.Errorf("creating store root %q: %w", absRoot, err)
	}
	return &DirStore{root: absRoot}, nil
}

func (s *DirStore) Name() string {
	return "dir"
}

// ✍️ NewWriter opens a temp file for the key. Content type is recorded by
// object stores; a filesystem has nowhere to keep it, so it is ignored here.
func (s *DirStore) NewWriter(ctx context.Context, key, contentType string) (WriteCommitter, error) {
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, errors.Errorf("creating parent directories for %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return nil, errors.Errorf("creating temp file for %q: %w", key, err)
	}

	return &dirWriter{file: tmp, target: target}, nil
}

type dirWriter struct {
	file   *os.File
	target string
	done   bool
}

func (w *dirWriter) Write(b []byte) (int, error) {
	return w.file.Write(b)
}

func (w *dirWriter) Commit() error {
	if w.done {
		return errors.New("writer already finished")
	}
	w.done = true

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		os.Remove(w.file.Name())
		return errors.Errorf("syncing %q: %w", w.target, err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.file.Name())
		return errors.Errorf("closing %q: %w", w.target, err)
	}
	if err := os.Rename(w.file.Name(), w.target); err != nil {
		os.Remove(w.file.Name())
		return errors.Errorf("renaming into place %q: %w", w.target, err)
	}
	return nil
}

func (w *dirWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	w.file.Close()
	if err := os.Remove(w.file.Name()); err != nil {
		return errors.Errorf("removing temp file: %w", err)
	}
	return nil
}

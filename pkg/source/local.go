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

package source

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register("local", func(ctx context.Context) (Provider, error) {
		return &LocalProvider{}, nil
	})
}

// 💾 LocalProvider serves files from the local filesystem.
type LocalProvider struct{}

func (p *LocalProvider) Name() string {
	return "local"
}

// 📄 Open opens one file for reading.
func (p *LocalProvider) Open(ctx context.Context, fullPath string) (io.ReadCloser, error) {
	f, err := os.Open(fullPath)
	switch {
	case os.IsNotExist(err):
		return nil, errors.Errorf("%w: %s", ErrNotFound, fullPath)
	case os.IsPermission(err):
		return nil, errors.Errorf("%w: %s", ErrAccessDenied, fullPath)
	case err != nil:
		return nil, errors.Errorf("opening %s: %w", fullPath, err)
	}
	return f, nil
}

// 📂 List walks root and returns a Descriptor per regular file, filtered by
// the include/ignore globs and sorted by ascending size.
func (p *LocalProvider) List(ctx context.Context, root string, opts ListOptions) ([]Descriptor, error) {
	logger := zerolog.Ctx(ctx)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving root %q: %w", root, err)
	}
	base := filepath.Base(absRoot)

	var out []Descriptor
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() {
			if path != absRoot && !opts.Recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if !matchesPatterns(rel, opts.IncludePatterns, true) {
			logger.Debug().Str("file", rel).Msg("file not matched by include patterns")
			return nil
		}
		if matchesPatterns(rel, opts.IgnorePatterns, false) {
			logger.Debug().Str("file", rel).Msg("file ignored by pattern")
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return errors.Errorf("statting %s: %w", path, err)
		}

		out = append(out, Descriptor{
			FileName:      d.Name(),
			FullPath:      path,
			FileSizeBytes: info.Size(),
			RelativePath:  base + "/" + rel,
			HostURI:       "file:///",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Stable(BySize(out))
	return out, nil
}

// 🔍 matchesPatterns reports whether path matches any of the globs. An empty
// pattern list yields the provided default so includes default to everything
// and ignores to nothing.
func matchesPatterns(path string, patterns []string, whenEmpty bool) bool {
	if len(patterns) == 0 {
		return whenEmpty
	}
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

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

// Package source provides the source-filesystem capability: listing files
// into Descriptors and opening per-file byte streams, with a decode chain
// for compressed and encrypted inputs.
package source

import (
	"context"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotFound is wrapped by Open when the file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrAccessDenied is wrapped by Open when permission is denied.
	ErrAccessDenied = errors.New("access denied")
)

// 🔧 ListOptions controls which files a listing returns.
type ListOptions struct {
	// Recursive descends into subdirectories
	Recursive bool
	// IncludePatterns are doublestar globs matched against the path under
	// the root; when non-empty, only matching files are listed
	IncludePatterns []string
	// IgnorePatterns are doublestar globs for files to skip
	IgnorePatterns []string
}

// 🔌 Provider is the interface for source filesystems
type Provider interface {
	// Name returns the name of the provider (e.g. "local")
	Name() string

	// 📂 List enumerates the files under root, sorted by ascending size
	List(ctx context.Context, root string, opts ListOptions) ([]Descriptor, error)

	// 📄 Open returns a byte stream for one file. Failures wrap
	// ErrNotFound or ErrAccessDenied where the cause is known.
	Open(ctx context.Context, fullPath string) (io.ReadCloser, error)
}

// 🏭 Factory creates a new provider
type Factory func(ctx context.Context) (Provider, error)

var (
	// 🗺️ providers is a map of provider names to factories
	providers = make(map[string]Factory)
)

// 📝 Register registers a provider factory
func Register(name string, factory Factory) {
	providers[name] = factory
}

// 🎯 Get returns a provider by name
func Get(ctx context.Context, name string) (Provider, error) {
	factory, ok := providers[name]
	if !ok {
		options := make([]string, 0, len(providers))
		for k := range providers {
			options = append(options, k)
		}
		return nil, errors.Errorf("source provider %q not found, options: %s", name, strings.Join(options, ", "))
	}
	return factory(ctx)
}

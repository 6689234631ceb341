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

// Package protect provides the format-preserving protection capability used
// to anonymize CSV field values, and the per-format registry that caches one
// protection engine per distinct format tag.
package protect

import (
	"sync"

	"github.com/walteh/anonpipe/pkg/fieldspec"
	"gitlab.com/tozd/go/errors"
)

// ErrProtectorInit is returned when a protection engine cannot be built.
// Registry wraps it around the underlying cause; it is fatal for the whole
// job and surfaces before any file is processed.
var ErrProtectorInit = errors.New("initializing protector")

// 🔐 Protector is a format-preserving transform engine bound to one format
// tag. Implementations must be safe for concurrent use once built.
type Protector interface {
	// Protect replaces plaintext with an anonymized value of the same shape.
	Protect(plaintext string) (string, error)
}

// 🏭 Builder constructs Protectors. It is the external capability boundary:
// the production implementation wraps a crypto SDK configured once per job
// from Credentials.
type Builder interface {
	// Build constructs a Protector for the given format tag.
	Build(format string) (Protector, error)
}

// 🔧 Credentials is the per-job configuration for the protection capability.
type Credentials struct {
	PolicyURL      string
	Identity       string
	SharedSecret   string
	TrustStorePath string
	CachePath      string
}

// 📦 Registry caches one Protector per distinct format tag. Construction is
// expensive; the first Get for a tag builds the engine, later calls return
// the cached instance. Warm the registry at startup so construction failures
// abort the job before any file is touched.
type Registry struct {
	builder Builder

	mu    sync.Mutex
	cache map[string]Protector
}

// 🏭 NewRegistry creates a registry backed by the given builder.
func NewRegistry(builder Builder) *Registry {
	return &Registry{
		builder: builder,
		cache:   make(map[string]Protector),
	}
}

// 🎯 Get returns the Protector for the format tag, building it on first use.
func (r *Registry) Get(format string) (Protector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache[format]; ok {
		return p, nil
	}

	p, err := r.builder.Build(format)
	if err != nil {
		return nil, errors.Errorf("%w for format %q: %w", ErrProtectorInit, format, err)
	}
	r.cache[format] = p

	return p, nil
}

// 🔥 Warm builds the Protector for every distinct format used by an
// anonymized field, so that bad credentials or unknown formats fail the job
// up front instead of on row one of the first file.
func (r *Registry) Warm(fields []fieldspec.Field) error {
	for _, f := range fields {
		if !f.Anonymize {
			continue
		}
		if _, err := r.Get(f.Format); err != nil {
			return err
		}
	}
	return nil
}

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

// Package job orchestrates one anonymization run: listing the source,
// warming the protectors, and driving every file through the transfer
// pipeline.
package job

import (
	"context"
	"strings"
	"sync"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/anonpipe/pkg/config"
	"github.com/walteh/anonpipe/pkg/fieldspec"
	"github.com/walteh/anonpipe/pkg/log"
	"github.com/walteh/anonpipe/pkg/protect"
	"github.com/walteh/anonpipe/pkg/sink"
	"github.com/walteh/anonpipe/pkg/source"
	"github.com/walteh/anonpipe/pkg/transform"
)

// ❌ FileError records one failed file within a run.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// 📊 Summary reports the outcome of one run.
type Summary struct {
	RunID        string
	Files        int
	Succeeded    int
	Failed       int
	BytesWritten int64
	Errors       []FileError
}

// 🎯 Runner executes one configured job end to end.
type Runner struct {
	cfg      *config.Config
	provider source.Provider
	store    sink.Store
	builder  protect.Builder
}

// 🏭 NewRunner assembles a runner from a validated config and its
// capabilities.
func NewRunner(cfg *config.Config, provider source.Provider, store sink.Store, builder protect.Builder) *Runner {
	return &Runner{
		cfg:      cfg,
		provider: provider,
		store:    store,
		builder:  builder,
	}
}

// 🗝️ destKey computes the destination object key for one listed file: the
// relative path with compression/encryption extensions stripped, plus the
// configured suffix.
func (r *Runner) destKey(desc source.Descriptor) string {
	return source.DecodedName(desc.RelativePath) + r.cfg.Destination.Suffix
}

// 📂 List enumerates the files the job would process.
func (r *Runner) List(ctx context.Context) ([]source.Descriptor, error) {
	descs, err := r.provider.List(ctx, r.cfg.Source.Path, source.ListOptions{
		Recursive:       r.cfg.Source.Recursive,
		IncludePatterns: r.cfg.Source.Include,
		IgnorePatterns:  r.cfg.Source.Ignore,
	})
	if err != nil {
		return nil, errors.Errorf("listing source: %w", err)
	}

	files := make([]source.Descriptor, 0, len(descs))
	for _, desc := range descs {
		if desc.IsDir || strings.TrimSpace(desc.RelativePath) == "" {
			continue
		}
		files = append(files, desc)
	}
	return files, nil
}

// 🔥 Prepare parses the field spec and warms every protector the job will
// need. A protector that cannot be built fails the whole run before any
// file is touched.
func (r *Runner) Prepare(ctx context.Context) ([]fieldspec.Field, *protect.Registry, error) {
	fields, err := fieldspec.Parse(r.cfg.Fields)
	if err != nil {
		return nil, nil, errors.Errorf("parsing field spec: %w", err)
	}

	registry := protect.NewRegistry(r.builder)
	if err := registry.Warm(fields); err != nil {
		return nil, nil, errors.Errorf("warming protectors: %w", err)
	}

	return fields, registry, nil
}

// 🚀 Run executes the job. Per-file failures are collected in the summary;
// with FailFast set the first failure cancels the remaining transfers. Run
// returns an error only when the run as a whole could not proceed or when
// any file failed.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	logger := zerolog.Ctx(ctx)
	console := log.FromContext(ctx)

	fields, registry, err := r.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	files, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID: uuid.New().String(),
		Files: len(files),
	}

	console.StartJob(ctx, log.JobOperation{
		RunID:       summary.RunID,
		Source:      r.cfg.Source.Path,
		Destination: r.cfg.Destination.Path,
		Files:       len(files),
	})
	defer console.EndJob(ctx)

	if len(files) == 0 {
		logger.Info().Str("run_id", summary.RunID).Msg("no files to process")
		return summary, nil
	}

	keyring, err := r.loadKeyring()
	if err != nil {
		return nil, err
	}

	transformer := transform.NewTransformer(fields, registry)
	driver := transform.NewDriver(transformer, r.store, transform.Options{
		ChunkSize:   r.cfg.BufferSize,
		ContentType: r.cfg.Destination.ContentType,
		Decode:      source.DecodeOptions{Keyring: keyring},
	})

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)

	for _, desc := range files {
		desc := desc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			destKey := r.destKey(desc)
			result, err := driver.Transfer(gctx, r.provider, desc, destKey)

			mu.Lock()
			if err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, FileError{Path: desc.RelativePath, Err: err})
			} else {
				summary.Succeeded++
				summary.BytesWritten += result.BytesWritten
			}
			mu.Unlock()

			console.LogTransfer(gctx, log.TransferOperation{
				Source: desc.RelativePath,
				Dest:   destKey,
				Bytes:  result.BytesWritten,
				Rows:   result.Rows,
				Err:    err,
			})

			if err != nil && r.cfg.FailFast {
				return err
			}
			return nil
		})
	}

	// With FailFast unset every goroutine returns nil and failures live
	// only in the summary.
	waitErr := g.Wait()

	logger.Info().
		Str("run_id", summary.RunID).
		Int("files", summary.Files).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int64("bytes", summary.BytesWritten).
		Msg("run finished")

	if waitErr != nil {
		return summary, errors.Errorf("run %s aborted: %w", summary.RunID, waitErr)
	}
	if summary.Failed > 0 {
		return summary, errors.Errorf("run %s: %d of %d files failed", summary.RunID, summary.Failed, summary.Files)
	}
	return summary, nil
}

// 🔑 loadKeyring loads the PGP keyring when one is configured.
func (r *Runner) loadKeyring() (openpgp.EntityList, error) {
	if r.cfg.Source.Keyring == "" {
		return nil, nil
	}
	keyring, err := source.LoadKeyring(r.cfg.Source.Keyring, r.cfg.Source.KeyringPassphrase)
	if err != nil {
		return nil, errors.Errorf("loading keyring: %w", err)
	}
	return keyring, nil
}

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

package job

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/anonpipe/pkg/config"
	"github.com/walteh/anonpipe/pkg/log"
	"github.com/walteh/anonpipe/pkg/protect"
	"github.com/walteh/anonpipe/pkg/sink"
	"github.com/walteh/anonpipe/pkg/source"
)

// 🧪 tagBuilder builds protectors that wrap values so tests can see which
// format was applied.
type tagBuilder struct{}

func (b *tagBuilder) Build(format string) (protect.Protector, error) {
	return &tagProtector{format: format}, nil
}

type tagProtector struct {
	format string
}

func (p *tagProtector) Protect(value string) (string, error) {
	return fmt.Sprintf("enc(%s:%s)", p.format, value), nil
}

// 🧪 failBuilder refuses to build anything.
type failBuilder struct{}

func (b *failBuilder) Build(format string) (protect.Protector, error) {
	return nil, fmt.Errorf("no backend for format %q", format)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	ctx = log.NewContext(ctx, log.New(&bytes.Buffer{}, zerolog.Disabled))
	return ctx
}

func testConfig(root, dest string) *config.Config {
	cfg := &config.Config{
		Source:      config.SourceArgs{Path: root, Recursive: true},
		Destination: config.DestinationArgs{Path: dest},
		Protection:  config.ProtectionArgs{Identity: "svc@example.com", SharedSecret: "secret"},
		Fields:      "id:Yes:digits,name:No:alnum",
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newLocalProvider(t *testing.T) source.Provider {
	t.Helper()
	provider, err := source.Get(context.Background(), "local")
	require.NoError(t, err, "local provider should be registered")
	return provider
}

func TestRunTransformsEveryFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "id,name\n12345,alice\n")
	writeFile(t, root, "sub/b.csv", "id,name\n67890,bob\n")

	store := sink.NewMemStore()
	runner := NewRunner(testConfig(root, "mem://out"), newLocalProvider(t), store, &tagBuilder{})

	summary, err := runner.Run(testContext(t))
	require.NoError(t, err, "run should succeed")

	assert.Equal(t, 2, summary.Files, "should list both files")
	assert.Equal(t, 2, summary.Succeeded, "both files should succeed")
	assert.Equal(t, 0, summary.Failed, "no file should fail")
	assert.NotEmpty(t, summary.RunID, "run id should be assigned")
	assert.Equal(t, 2, store.Len(), "both objects should be committed")

	base := filepath.Base(root)
	obj, ok := store.Object(base + "/a.csv")
	require.True(t, ok, "object for a.csv should exist")
	assert.Equal(t, "id,name\nenc(digits:12345),alice\n", string(obj.Data), "flagged field should be protected, header untouched")

	_, ok = store.Object(base + "/sub/b.csv")
	assert.True(t, ok, "object for sub/b.csv should exist")
}

func TestRunAppliesSuffixAndStripsExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "id,name\n12345,alice\n")

	store := sink.NewMemStore()
	cfg := testConfig(root, "mem://out")
	cfg.Destination.Suffix = "-anon"
	runner := NewRunner(cfg, newLocalProvider(t), store, &tagBuilder{})

	_, err := runner.Run(testContext(t))
	require.NoError(t, err)

	base := filepath.Base(root)
	_, ok := store.Object(base + "/a.csv-anon")
	assert.True(t, ok, "destination key should carry the configured suffix")
}

func TestRunCollectsPerFileFailures(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.csv", "id,name\n12345,alice\n")
	writeFile(t, root, "short.csv", "id,name,extra,wide\n1\n")

	store := sink.NewMemStore()
	runner := NewRunner(testConfig(root, "mem://out"), newLocalProvider(t), store, &tagBuilder{})

	summary, err := runner.Run(testContext(t))
	require.Error(t, err, "run with a failed file should report an error")
	assert.Contains(t, err.Error(), "1 of 2 files failed")

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1, "should record the failing file")
	assert.Contains(t, summary.Errors[0].Path, "short.csv")

	base := filepath.Base(root)
	_, ok := store.Object(base + "/good.csv")
	assert.True(t, ok, "the good file should still be committed")
	_, ok = store.Object(base + "/short.csv")
	assert.False(t, ok, "the failing file must never be committed")
	assert.Equal(t, 1, store.Aborted(base+"/short.csv"), "the failing upload should be aborted")
}

func TestRunFailFast(t *testing.T) {
	root := t.TempDir()
	// files are processed in ascending size order, so the short poison
	// file goes first
	writeFile(t, root, "bad.csv", "id,x\n1\n")
	writeFile(t, root, "good.csv", "id,name\n12345,alice with a long row\n")

	store := sink.NewMemStore()
	cfg := testConfig(root, "mem://out")
	cfg.FailFast = true
	runner := NewRunner(cfg, newLocalProvider(t), store, &tagBuilder{})

	summary, err := runner.Run(testContext(t))
	require.Error(t, err, "fail-fast run should abort on the first failure")
	assert.Contains(t, err.Error(), "aborted")
	assert.GreaterOrEqual(t, summary.Failed, 1)
}

func TestRunEmptyListing(t *testing.T) {
	root := t.TempDir()

	store := sink.NewMemStore()
	runner := NewRunner(testConfig(root, "mem://out"), newLocalProvider(t), store, &tagBuilder{})

	summary, err := runner.Run(testContext(t))
	require.NoError(t, err, "an empty source is not an error")
	assert.Equal(t, 0, summary.Files)
	assert.Equal(t, 0, store.Len(), "nothing should be written")
}

func TestRunFatalOnBadFieldSpec(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "id\n1\n")

	store := sink.NewMemStore()
	cfg := testConfig(root, "mem://out")
	cfg.Fields = "id:Yes" // missing format attribute
	runner := NewRunner(cfg, newLocalProvider(t), store, &tagBuilder{})

	_, err := runner.Run(testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field spec")
	assert.Equal(t, 0, store.Len(), "no file may be touched when the spec is invalid")
}

func TestRunFatalOnProtectorInit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "id,name\n12345,alice\n")

	store := sink.NewMemStore()
	runner := NewRunner(testConfig(root, "mem://out"), newLocalProvider(t), store, &failBuilder{})

	_, err := runner.Run(testContext(t))
	require.Error(t, err, "an unbuildable protector fails the whole run")
	assert.Contains(t, err.Error(), "warming protectors")
	assert.Equal(t, 0, store.Len(), "no file may be touched when a protector cannot be built")
}

func TestListSkipsDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.csv", "id\n1\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0o755))

	runner := NewRunner(testConfig(root, "mem://out"), newLocalProvider(t), sink.NewMemStore(), &tagBuilder{})

	files, err := runner.List(testContext(t))
	require.NoError(t, err)
	require.Len(t, files, 1, "only regular files should be listed")
	assert.Equal(t, "a.csv", files[0].FileName)
}

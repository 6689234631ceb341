package opts

import (
	"github.com/walteh/anonpipe/pkg/config"
	"github.com/walteh/anonpipe/pkg/log"
	"github.com/walteh/anonpipe/pkg/protect"
	"github.com/walteh/anonpipe/pkg/sink"
	"github.com/walteh/anonpipe/pkg/source"
)

// RootOpts contains shared options used by all commands. The fields are
// populated once flags have been parsed, before any command runs.
type RootOpts struct {
	Config   *config.Config
	Provider source.Provider
	Store    sink.Store
	Builder  protect.Builder
	Console  *log.Logger
}

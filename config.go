package portablefs

import (
	"io"

	"cosmossdk.io/log"
	"github.com/go-git/go-billy/v5"
)

// FSConfig configures the resources behind a FileSystem: the streams bound to
// the reserved descriptors, where paths are opened, and logging.
//
// # Notes
//
//   - This is an interface for decoupling, not third-party implementations.
//     All implementations are in portablefs.
//   - FSConfig is immutable. Each WithXXX function returns a new instance
//     including the corresponding change.
type FSConfig interface {
	// WithStdin configures where standard input (file descriptor 0) is read.
	// Defaults to a stream that is always at EOF.
	//
	// # Notes
	//
	//   - The reader is closed when descriptor 0 is closed, if it implements
	//     io.Closer.
	WithStdin(io.Reader) FSConfig

	// WithStdout configures where standard output (file descriptor 1) is
	// written. Defaults to io.Discard.
	WithStdout(io.Writer) FSConfig

	// WithStderr configures where standard error (file descriptor 2) is
	// written. Defaults to io.Discard.
	WithStderr(io.Writer) FSConfig

	// WithWorkDir opens paths on the host filesystem, resolving relative
	// paths against dir. Defaults to the current working directory.
	//
	// This overrides any previous WithRootDir or WithFS.
	WithWorkDir(dir string) FSConfig

	// WithRootDir confines opens to dir on the host: "/" names dir itself and
	// relative paths are resolved against it.
	//
	// This overrides any previous WithWorkDir or WithFS.
	WithRootDir(dir string) FSConfig

	// WithFS opens paths on the given billy.Filesystem instead of the host,
	// ex. memfs.New() for tests. Relative paths are resolved against its
	// root.
	//
	// This overrides any previous WithWorkDir or WithRootDir.
	WithFS(billy.Filesystem) FSConfig

	// WithLogger sets the logger used for open/close tracing and for
	// unrecognized host diagnostics. Defaults to log.NewNopLogger().
	WithLogger(log.Logger) FSConfig
}

type fsConfig struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	workDir string
	rootDir string
	fs      billy.Filesystem
	logger  log.Logger
}

// NewFSConfig returns a FSConfig with noop standard streams, the current
// working directory as the base of relative paths and no logging.
func NewFSConfig() FSConfig {
	return &fsConfig{}
}

// clone makes a copy of this file system config.
func (c *fsConfig) clone() *fsConfig {
	ret := *c
	return &ret
}

// WithStdin implements FSConfig.WithStdin
func (c *fsConfig) WithStdin(stdin io.Reader) FSConfig {
	ret := c.clone()
	ret.stdin = stdin
	return ret
}

// WithStdout implements FSConfig.WithStdout
func (c *fsConfig) WithStdout(stdout io.Writer) FSConfig {
	ret := c.clone()
	ret.stdout = stdout
	return ret
}

// WithStderr implements FSConfig.WithStderr
func (c *fsConfig) WithStderr(stderr io.Writer) FSConfig {
	ret := c.clone()
	ret.stderr = stderr
	return ret
}

// WithWorkDir implements FSConfig.WithWorkDir
func (c *fsConfig) WithWorkDir(dir string) FSConfig {
	ret := c.clone()
	ret.workDir = dir
	ret.rootDir = ""
	ret.fs = nil
	return ret
}

// WithRootDir implements FSConfig.WithRootDir
func (c *fsConfig) WithRootDir(dir string) FSConfig {
	ret := c.clone()
	ret.rootDir = dir
	ret.workDir = ""
	ret.fs = nil
	return ret
}

// WithFS implements FSConfig.WithFS
func (c *fsConfig) WithFS(fs billy.Filesystem) FSConfig {
	ret := c.clone()
	ret.fs = fs
	ret.workDir = ""
	ret.rootDir = ""
	return ret
}

// WithLogger implements FSConfig.WithLogger
func (c *fsConfig) WithLogger(logger log.Logger) FSConfig {
	ret := c.clone()
	ret.logger = logger
	return ret
}

package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kframework/portablefs"
	"github.com/kframework/portablefs/internal/config"
	"github.com/kframework/portablefs/internal/transport"
	"github.com/kframework/portablefs/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	doMain(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing. The streams are
// also what descriptors 0, 1 and 2 are bound to when serving.
func doMain(ctx context.Context, args []string, stdIn io.Reader, stdOut, stdErr io.Writer, exit func(code int)) {
	root := newRootCmd()
	root.SetIn(stdIn)
	root.SetOut(stdOut)
	root.SetErr(stdErr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		exit(1)
		return
	}
	exit(0)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portablefs",
		Short: "portablefs CLI",
		Long: `portablefs serves files to remote clients by small integer descriptors,
reporting failures as portable error tokens such as ENOENT.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of portablefs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersion())
		},
	}
}

// serveFlags are the flags of "serve" that override config file keys.
type serveFlags struct {
	configPath  string
	listen      string
	root        string
	workDir     string
	logLevel    string
	logFormat   string
	maxRead     int
	idleTimeout time.Duration
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the file system until interrupted",
		Long: `Serve accepts connections and handles one request per line:

    <id> open <path> <mode>      -> <id> ok <fd>
    <id> close <fd>              -> <id> ok
    <id> read <fd> <n>           -> <id> ok <data>
    <id> write <fd> <data>       -> <id> ok <n>
    <id> seek <fd> <off> [<wh>]  -> <id> ok <offset>

Failures reply "<id> fail <token>". Paths and data are Go quoted strings.

Settings are read from --config, else portablefs/config.toml in the XDG
config directories. Flags override the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if err = f.apply(cmd, cfg); err != nil {
				return err
			}
			return serve(cmd, cfg, path)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&f.listen, "listen", config.DefaultListen, "TCP address to listen on")
	flags.StringVar(&f.root, "root", "", "host directory that confines opened paths")
	flags.StringVar(&f.workDir, "work-dir", "", "host directory relative paths are resolved against")
	flags.StringVar(&f.logLevel, "log-level", "info", `log level, ex. "debug" or "transport:debug,*:info"`)
	flags.StringVar(&f.logFormat, "log-format", config.LogFormatText, `log format, "text" or "json"`)
	flags.IntVar(&f.maxRead, "max-read", transport.DefaultMaxRead, "largest count a read request may ask for")
	flags.DurationVar(&f.idleTimeout, "idle-timeout", 0, "drop connections idle for this long, 0 to never drop")
	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = f.listen
	}
	if flags.Changed("root") {
		cfg.Root, cfg.WorkDir = f.root, ""
	}
	if flags.Changed("work-dir") {
		cfg.WorkDir, cfg.Root = f.workDir, ""
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if flags.Changed("max-read") {
		cfg.MaxRead = f.maxRead
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout = config.Duration(f.idleTimeout)
	}
	return cfg.Validate()
}

func serve(cmd *cobra.Command, cfg *config.Config, configPath string) error {
	stdOut, stdErr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logger, err := newLogger(cfg, stdErr)
	if err != nil {
		return err
	}
	if configPath != "" {
		logger.Debug("loaded config file", "path", configPath)
	}

	fsConfig := portablefs.NewFSConfig().
		WithStdin(cmd.InOrStdin()).
		WithStdout(stdOut).
		WithStderr(stdErr).
		WithLogger(logger.With(log.ModuleKey, "fs"))
	location := "current directory"
	switch {
	case cfg.Root != "":
		fsConfig = fsConfig.WithRootDir(cfg.Root)
		location = "root " + cfg.Root
	case cfg.WorkDir != "":
		fsConfig = fsConfig.WithWorkDir(cfg.WorkDir)
		location = "work dir " + cfg.WorkDir
	}

	fsys, err := portablefs.New(fsConfig)
	if err != nil {
		return err
	}
	defer func() {
		if e := fsys.Shutdown(); e != nil {
			logger.Warn("closing descriptors", "err", e)
		}
	}()

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	printBanner(stdOut, ln.Addr().String(), location)

	server := transport.NewServer(fsys, logger.With(log.ModuleKey, "transport"),
		transport.WithMaxRead(cfg.MaxRead),
		transport.WithIdleTimeout(time.Duration(cfg.IdleTimeout)))
	if err = server.Serve(cmd.Context(), ln); err != nil {
		return err
	}
	logger.Info("shut down")
	return nil
}

func newLogger(cfg *config.Config, stdErr io.Writer) (log.Logger, error) {
	filter, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	opts := []log.Option{
		log.FilterOption(filter),
		log.ColorOption(isTerminal(stdErr)),
	}
	if cfg.LogFormat == config.LogFormatJSON {
		opts = append(opts, log.OutputJSONOption())
	}
	return log.NewLogger(stdErr, opts...), nil
}

func printBanner(stdOut io.Writer, addr, location string) {
	title := color.New(color.FgGreen, color.Bold)
	faint := color.New(color.Faint)
	if !isTerminal(stdOut) {
		title.DisableColor()
		faint.DisableColor()
	}
	title.Fprintf(stdOut, "portablefs %s\n", version.GetVersion())
	faint.Fprintf(stdOut, "  listening on %s, serving %s\n", addr, location)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

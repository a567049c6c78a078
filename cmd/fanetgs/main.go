// Command fanetgs is the FANET ground-station daemon: it loads a
// configuration document, and either forwards its flags to an
// already-running instance over the single-instance IPC socket, or
// starts the radio/dispatcher/station graph itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlohse/fanetgs/internal/app"
	"github.com/mlohse/fanetgs/internal/constants"
	"github.com/mlohse/fanetgs/internal/fanet/address"
	"github.com/mlohse/fanetgs/internal/ipc"
	"github.com/mlohse/fanetgs/internal/log"
	"github.com/mlohse/fanetgs/pkg/config"
)

func main() {
	cfgFile := flag.String("c", "fanetgs.yaml", "path to configuration file (use -config-backend for SQLite)")
	flag.StringVar(cfgFile, "config", "fanetgs.yaml", "path to configuration file (use -config-backend for SQLite)")
	cfgBackend := flag.String("config-backend", "yaml", "configuration backend: 'yaml' or 'sqlite'")
	pidFile := flag.String("pid-file", "", "path to write the daemon's PID file (disabled if empty)")
	loglevel := flag.Int("l", 3, "log verbosity 0 (quietest) through 5 (most verbose)")
	flag.IntVar(loglevel, "loglevel", 3, "log verbosity 0 (quietest) through 5 (most verbose)")
	daemon := flag.Bool("d", false, "run as a daemon (reserved; the process always runs in the foreground under its supervisor)")
	flag.BoolVar(daemon, "daemon", false, "run as a daemon (reserved; the process always runs in the foreground under its supervisor)")
	quit := flag.Bool("q", false, "ask a running instance to shut down")
	flag.BoolVar(quit, "quit", false, "ask a running instance to shut down")
	msg := flag.String("m", "", "send a message through a running instance: 'mm:dddd text'")
	flag.StringVar(msg, "message", "", "send a message through a running instance: 'mm:dddd text'")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fanetgs %s\n", constants.Version)
		os.Exit(0)
	}

	if err := log.Init(*loglevel); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	_ = *daemon // foreground-only; retained for CLI compatibility with spec.md §6

	sockPath := ipc.DefaultSocketPath(*pidFile)
	if *quit || *msg != "" {
		if err := forward(sockPath, *quit, *msg); err != nil {
			log.Errorf("failed to reach a running instance: %v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	doc, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("failed to load configuration: %v", err)
		os.Exit(1)
	}
	if err := doc.Version.Check(constants.ConfigVersionMajor, constants.ConfigVersionMinor); err != nil {
		log.Errorf("incompatible configuration: %v", err)
		os.Exit(1)
	}

	daemonApp := app.New(doc, *pidFile, log.GetSugaredLogger())
	if err := daemonApp.Run(context.Background()); err != nil {
		log.Errorf("application error: %v", err)
		os.Exit(1)
	}
}

// forward sends quit/message flags to an already-running instance
// over its IPC socket, the Go equivalent of
// QtSingleCoreApplication's automatic argv-forwarding on secondary
// launch (see internal/ipc).
func forward(sockPath string, quit bool, msg string) error {
	args := ipc.ForwardedArgs{Quit: quit}
	if msg != "" {
		addrStr, text, err := splitMessageFlag(msg)
		if err != nil {
			return err
		}
		if _, err := address.Parse(addrStr); err != nil {
			return fmt.Errorf("malformed address in -m/--message: %w", err)
		}
		args.MessageAddr = addrStr
		args.MessageText = text
	}
	return ipc.Send(sockPath, args)
}

// splitMessageFlag splits the "-m mm:dddd text" flag value at its
// first space, per original_source's own `attr.indexOf(' ')` message
// parsing: everything before the space is the address, everything
// after is the message text.
func splitMessageFlag(s string) (addr, text string, err error) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return "", "", fmt.Errorf("malformed -m/--message value %q, want 'mm:dddd text'", s)
	}
	return s[:i], s[i+1:], nil
}

func loadConfig(cfgFile, cfgBackend string) (*config.Document, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend %q, use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	doc, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", filename, err)
	}
	return doc, nil
}

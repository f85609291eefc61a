package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sufield/didchain/internal/app"
	"github.com/sufield/didchain/internal/config"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/logging"
)

// VersionInfo holds build-time version information
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// Status line colors. fatih/color turns them off when stdout is not a
// terminal or NO_COLOR is set.
var (
	okColor   = color.New(color.FgGreen)
	infoColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
)

// cli carries the output streams shared by every command.
type cli struct {
	out     io.Writer
	errOut  io.Writer
	version VersionInfo
}

// session loads the config, builds the application and returns a close
// function that flushes storage.
func (c *cli) session(ctx context.Context, configPath string) (*app.Application, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(c.errOut, cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Warn("memory storage: identities are lost when didctl exits")
	}

	application, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return application, func() error { return application.Close(ctx) }, nil
}

// withAccount runs fn on the account of the DID given as the only positional
// argument after flags.
func (c *cli) withAccount(ctx context.Context, fs *flag.FlagSet, configPath string, nargs int, fn func(*app.Application, *app.Account, []string) error) (err error) {
	if fs.NArg() != nargs+1 {
		fs.Usage()
		return fmt.Errorf("expected %d argument(s), got %d", nargs+1, fs.NArg())
	}
	did, err := domain.ParseDID(fs.Arg(0))
	if err != nil {
		return err
	}

	application, closeFn, err := c.session(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	acct, err := application.Manager.LoadIdentity(ctx, did)
	if err != nil {
		return err
	}
	return fn(application, acct, fs.Args()[1:])
}

// parse parses flags; --help is not an error.
func parse(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *cli) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

func (c *cli) printResult(res app.PublishResult) {
	if !res.Published() {
		infoColor.Fprintln(c.out, "no changes to publish")
		return
	}
	okColor.Fprintf(c.out, "published %s %s\n", res.Type, res.MessageID)
}

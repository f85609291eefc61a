package main

import (
	"context"

	"github.com/sufield/didchain/internal/app"
)

func (c *cli) publishCommand(ctx context.Context, cmd *Command, args []string) error {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	force := fs.Bool("force-integration", false, "Publish a full integration message even if a diff would do")
	signWith := fs.String("sign-with", "", "Fragment of the capabilityInvocation method to sign with")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	return c.withAccount(ctx, fs, *configPath, 0, func(_ *app.Application, acct *app.Account, _ []string) error {
		res, err := acct.Publish(ctx, app.PublishOptions{ForceIntegration: *force, SignWith: *signWith})
		if err != nil {
			return err
		}
		c.printResult(res)
		return nil
	})
}

func (c *cli) fetchCommand(ctx context.Context, cmd *Command, args []string) error {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	return c.withAccount(ctx, fs, *configPath, 0, func(_ *app.Application, acct *app.Account, _ []string) error {
		updated, err := acct.FetchDocument(ctx)
		if err != nil {
			return err
		}
		if updated {
			warnColor.Fprintln(c.out, "local document replaced by the ledger's")
		} else {
			infoColor.Fprintln(c.out, "already up to date")
		}
		return nil
	})
}

func (c *cli) watchCommand(ctx context.Context, cmd *Command, args []string) error {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	return c.withAccount(ctx, fs, *configPath, 0, func(_ *app.Application, acct *app.Account, _ []string) error {
		infoColor.Fprintf(c.out, "watching %s\n", acct.DID())
		return acct.Watch(ctx, func(changed bool, err error) {
			switch {
			case err != nil:
				warnColor.Fprintf(c.errOut, "fetch failed: %v\n", err)
			case changed:
				state := acct.ChainState()
				okColor.Fprintf(c.out, "fetched %s %s\n", state.LastIntegrationMessageID, state.LastDiffMessageID)
			}
		})
	})
}

func (c *cli) resolveCommand(ctx context.Context, cmd *Command, args []string) error {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	return c.withAccount(ctx, fs, *configPath, 0, func(_ *app.Application, acct *app.Account, _ []string) error {
		resolved, err := acct.Resolve(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(resolved)
	})
}

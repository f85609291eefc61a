package main

import (
	"context"
	"fmt"

	"github.com/sufield/didchain/internal/app"
	"github.com/sufield/didchain/internal/domain"
	"github.com/sufield/didchain/internal/signing"
)

func (c *cli) createCommand(ctx context.Context, cmd *Command, args []string) (err error) {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	fragment := fs.String("fragment", app.DefaultGenesisFragment, "Fragment of the genesis signing method")
	keyType := fs.String("key-type", string(signing.KeyTypeEd25519), "Key type of the genesis key")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	kt, err := signing.ParseKeyType(*keyType)
	if err != nil {
		return err
	}

	application, closeFn, err := c.session(ctx, *configPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	acct, err := application.Manager.CreateIdentity(ctx, app.CreateIdentityOptions{Fragment: *fragment, KeyType: kt})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, acct.DID())
	return nil
}

func (c *cli) listCommand(ctx context.Context, cmd *Command, args []string) (err error) {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	if ok, err := parse(fs, args); !ok {
		return err
	}

	application, closeFn, err := c.session(ctx, *configPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	entries, err := application.Manager.ListIdentities(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "no identities")
		return nil
	}
	table := NewTableWriter([]string{"DID", "ID"})
	for _, e := range entries {
		table.AddRow(e.DID.String(), e.ID.String())
	}
	table.Print(c.out)
	return nil
}

// showOutput is printed by show.
type showOutput struct {
	ID         string            `json:"id"`
	ChainState domain.ChainState `json:"chainState"`
	Document   *domain.Document  `json:"document"`
}

func (c *cli) showCommand(ctx context.Context, cmd *Command, args []string) error {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	return c.withAccount(ctx, fs, *configPath, 0, func(_ *app.Application, acct *app.Account, _ []string) error {
		return c.printJSON(showOutput{
			ID:         acct.ID().String(),
			ChainState: acct.ChainState(),
			Document:   acct.Document(),
		})
	})
}

func (c *cli) deleteCommand(ctx context.Context, cmd *Command, args []string) (err error) {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected 1 argument(s), got %d", fs.NArg())
	}
	did, err := domain.ParseDID(fs.Arg(0))
	if err != nil {
		return err
	}

	application, closeFn, err := c.session(ctx, *configPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := application.Manager.DeleteIdentity(ctx, did); err != nil {
		return err
	}
	warnColor.Fprintf(c.out, "deleted %s\n", did)
	return nil
}

package main

import (
	"context"
	"strings"

	"github.com/sufield/didchain/internal/app"
	"github.com/sufield/didchain/internal/domain"
)

// applyCommand parses flags, then applies the update built from the
// positional arguments after the DID.
func (c *cli) applyCommand(ctx context.Context, cmd *Command, args []string, nargs int, build func([]string) (app.Update, error)) error {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	return c.withAccount(ctx, fs, *configPath, nargs, func(_ *app.Application, acct *app.Account, rest []string) error {
		u, err := build(rest)
		if err != nil {
			return err
		}
		res, err := acct.ApplyUpdate(ctx, u)
		if err != nil {
			return err
		}
		c.printResult(res)
		return nil
	})
}

func (c *cli) addServiceCommand(ctx context.Context, cmd *Command, args []string) error {
	return c.applyCommand(ctx, cmd, args, 3, func(rest []string) (app.Update, error) {
		return app.CreateService{Fragment: rest[0], Type: rest[1], Endpoint: rest[2]}, nil
	})
}

func (c *cli) removeServiceCommand(ctx context.Context, cmd *Command, args []string) error {
	return c.applyCommand(ctx, cmd, args, 1, func(rest []string) (app.Update, error) {
		return app.DeleteService{Fragment: rest[0]}, nil
	})
}

func (c *cli) addMethodCommand(ctx context.Context, cmd *Command, args []string) error {
	fs, configPath := cmd.NewFlagSet(c.errOut)
	rels := fs.String("rel", "", "Comma-separated relationships, e.g. authentication,capabilityInvocation")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	relationships, err := parseRelationships(*rels)
	if err != nil {
		return err
	}
	return c.withAccount(ctx, fs, *configPath, 1, func(_ *app.Application, acct *app.Account, rest []string) error {
		res, err := acct.ApplyUpdate(ctx, app.CreateMethod{Fragment: rest[0], Relationships: relationships})
		if err != nil {
			return err
		}
		c.printResult(res)
		return nil
	})
}

func (c *cli) removeMethodCommand(ctx context.Context, cmd *Command, args []string) error {
	return c.applyCommand(ctx, cmd, args, 1, func(rest []string) (app.Update, error) {
		return app.DeleteMethod{Fragment: rest[0]}, nil
	})
}

func parseRelationships(s string) ([]domain.MethodRelationship, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []domain.MethodRelationship
	for _, part := range strings.Split(s, ",") {
		rel, err := domain.ParseMethodRelationship(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

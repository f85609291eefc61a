// Command didctl creates, updates, publishes and resolves DID documents.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/sufield/didchain/internal/debug"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	debug.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// run executes one didctl invocation.
func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	c := &cli{
		out:    out,
		errOut: errOut,
		version: VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
	}
	registry := NewCommandRegistry()
	c.registerCommands(registry)
	return registry.Execute(ctx, args, out)
}

func (c *cli) registerCommands(r *CommandRegistry) {
	r.Register(&Command{
		Name:        "create",
		Description: "Create an identity and publish its genesis document",
		Usage:       "didctl create [--fragment sign-0] [--key-type ed25519]",
		Examples:    []string{"didctl create --config didchain.yaml"},
		Run:         c.createCommand,
	})
	r.Register(&Command{
		Name:        "list",
		Description: "List local identities",
		Usage:       "didctl list [flags]",
		Run:         c.listCommand,
	})
	r.Register(&Command{
		Name:        "show",
		Description: "Print the local document and chain position",
		Usage:       "didctl show [flags] <did>",
		Run:         c.showCommand,
	})
	r.Register(&Command{
		Name:        "add-service",
		Description: "Add a service endpoint",
		Usage:       "didctl add-service [flags] <did> <fragment> <type> <endpoint>",
		Examples:    []string{"didctl add-service did:chain:f3a9... web LinkedDomains https://example.org"},
		Run:         c.addServiceCommand,
	})
	r.Register(&Command{
		Name:        "remove-service",
		Description: "Remove a service endpoint",
		Usage:       "didctl remove-service [flags] <did> <fragment>",
		Run:         c.removeServiceCommand,
	})
	r.Register(&Command{
		Name:        "add-method",
		Description: "Generate a key and add it as a verification method",
		Usage:       "didctl add-method [--rel authentication,capabilityInvocation] <did> <fragment>",
		Examples: []string{
			"didctl add-method --rel authentication did:chain:f3a9... auth-1",
			"didctl add-method --rel capabilityInvocation did:chain:f3a9... sign-1",
		},
		Run: c.addMethodCommand,
	})
	r.Register(&Command{
		Name:        "remove-method",
		Description: "Remove a verification method and, once published, its key",
		Usage:       "didctl remove-method [flags] <did> <fragment>",
		Run:         c.removeMethodCommand,
	})
	r.Register(&Command{
		Name:        "publish",
		Description: "Publish pending local changes",
		Usage:       "didctl publish [--force-integration] [--sign-with fragment] <did>",
		Run:         c.publishCommand,
	})
	r.Register(&Command{
		Name:        "fetch",
		Description: "Replace the local document with the ledger's current one",
		Usage:       "didctl fetch [flags] <did>",
		Run:         c.fetchCommand,
	})
	r.Register(&Command{
		Name:        "watch",
		Description: "Fetch the ledger's document whenever it changes, until interrupted",
		Usage:       "didctl watch [flags] <did>",
		Examples:    []string{"didctl watch --config didchain.yaml did:chain:..."},
		Run:         c.watchCommand,
	})
	r.Register(&Command{
		Name:        "resolve",
		Description: "Resolve a DID from the ledger",
		Usage:       "didctl resolve [flags] <did>",
		Run:         c.resolveCommand,
	})
	r.Register(&Command{
		Name:        "delete",
		Description: "Delete an identity and its keys from local storage",
		Usage:       "didctl delete [flags] <did>",
		Run:         c.deleteCommand,
	})
	r.Register(&Command{
		Name:        "version",
		Description: "Show version information",
		Usage:       "didctl version [--verbose]",
		Run:         c.versionCommand,
	})
	r.Register(&Command{
		Name:        "help",
		Description: "Show help information",
		Usage:       "didctl help [command]",
		Run: func(_ context.Context, _ *Command, args []string) error {
			if len(args) > 0 {
				if cmd, ok := r.Lookup(args[0]); ok {
					cmd.PrintUsage(c.out)
					return nil
				}
				return fmt.Errorf("unknown command: %s", args[0])
			}
			r.PrintHelp(c.out)
			return nil
		},
	})
}

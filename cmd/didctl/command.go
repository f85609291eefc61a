package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Command is a didctl subcommand.
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(ctx context.Context, cmd *Command, args []string) error
}

// NewFlagSet creates a flag set that reports parse errors instead of
// exiting, with a --config flag shared by every command.
func (c *Command) NewFlagSet(w io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() {
		c.PrintUsage(w)
		fmt.Fprintln(w, "\nFLAGS:")
		fs.PrintDefaults()
	}
	configPath := fs.String("config", os.Getenv("DIDCHAIN_CONFIG"), "Path to the didchain YAML config (env DIDCHAIN_CONFIG)")
	return fs, configPath
}

// PrintUsage prints standardized usage information
func (c *Command) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s\n\n", c.Description)
	fmt.Fprintf(w, "USAGE:\n    %s\n", c.Usage)
	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nEXAMPLES:\n")
		for _, example := range c.Examples {
			fmt.Fprintf(w, "    %s\n", example)
		}
	}
}

// CommandRegistry manages all CLI commands
type CommandRegistry struct {
	commands map[string]*Command
	order    []string
}

// NewCommandRegistry creates an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command)}
}

// Register adds a command. Help lists commands in registration order.
func (r *CommandRegistry) Register(cmd *Command) {
	if _, ok := r.commands[cmd.Name]; !ok {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Lookup returns the command registered under name.
func (r *CommandRegistry) Lookup(name string) (*Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Execute runs the appropriate command based on args
func (r *CommandRegistry) Execute(ctx context.Context, args []string, w io.Writer) error {
	if len(args) < 1 {
		r.PrintHelp(w)
		return fmt.Errorf("no command specified")
	}

	switch args[0] {
	case "-h", "--help":
		r.PrintHelp(w)
		return nil
	}

	cmd, ok := r.commands[args[0]]
	if !ok {
		r.PrintHelp(w)
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.Run(ctx, cmd, args[1:])
}

// PrintHelp prints overall CLI help
func (r *CommandRegistry) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "didctl - manage DID documents published as versioned chains")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "    didctl <command> [flags] [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	for _, name := range r.order {
		fmt.Fprintf(w, "    %-15s %s\n", name, r.commands[name].Description)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags go before positional arguments. Run 'didctl <command> --help' for details.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "    # Create an identity and publish its genesis document")
	fmt.Fprintln(w, "    didctl create --config didchain.yaml")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "    # Add a service endpoint (published as a diff)")
	fmt.Fprintln(w, "    didctl add-service did:chain:f3a9... web LinkedDomains https://example.org")
}

// TableWriter provides simple table formatting
type TableWriter struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTableWriter creates a new table writer
func NewTableWriter(headers []string) *TableWriter {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &TableWriter{headers: headers, widths: widths}
}

// AddRow adds a row to the table
func (t *TableWriter) AddRow(row ...string) {
	t.rows = append(t.rows, row)
	for i, cell := range row {
		if i < len(t.widths) && len(cell) > t.widths[i] {
			t.widths[i] = len(cell)
		}
	}
}

// Print writes the table with a header rule.
func (t *TableWriter) Print(w io.Writer) {
	t.printRow(w, t.headers)
	rule := make([]string, len(t.widths))
	for i, width := range t.widths {
		rule[i] = strings.Repeat("-", width)
	}
	t.printRow(w, rule)
	for _, row := range t.rows {
		t.printRow(w, row)
	}
}

func (t *TableWriter) printRow(w io.Writer, row []string) {
	cells := make([]string, 0, len(row))
	for i, cell := range row {
		if i < len(t.widths) {
			cells = append(cells, fmt.Sprintf("%-*s", t.widths[i], cell))
		}
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
}

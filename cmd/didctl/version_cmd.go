package main

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
)

func (c *cli) versionCommand(_ context.Context, cmd *Command, args []string) error {
	fs, _ := cmd.NewFlagSet(c.errOut)
	verbose := fs.Bool("verbose", false, "Show Go version and module dependencies")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	fmt.Fprintf(c.out, "didctl %s (commit: %s, built: %s)\n", c.version.Version, c.version.Commit, c.version.Date)
	if !*verbose {
		return nil
	}

	fmt.Fprintf(c.out, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	table := NewTableWriter([]string{"Module", "Version"})
	for _, dep := range info.Deps {
		table.AddRow(dep.Path, dep.Version)
	}
	table.Print(c.out)
	return nil
}

// Command sigscan checks the function tables of every hookable module against DLL files
// on disk, without loading them.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wnxd/microhook/hookable"
	"github.com/wnxd/microhook/internal/hooks"
	"github.com/wnxd/microhook/loader"
	"github.com/wnxd/microhook/module"
	"go.uber.org/zap"
)

var (
	found   = color.New(color.FgGreen)
	missing = color.New(color.FgRed)
	header  = color.New(color.Bold)
)

func newRootCmd() *cobra.Command {
	var (
		base   string
		target string
	)
	c := &cobra.Command{
		Use:          "sigscan FILE...",
		Short:        "resolve hook signatures and exports in DLL files",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := strconv.ParseUint(base, 0, 64)
			if err != nil {
				return fmt.Errorf("--base: %w", err)
			}
			return run(cmd.OutOrStdout(), args, uintptr(addr), target)
		},
	}
	c.Flags().StringVar(&base, "base", "0", "load address of the images, 0 for their preferred base")
	c.Flags().StringVar(&target, "target", "", "hookable module to check (engine, server, kernel32); default picks by file name")
	return c
}

func run(out io.Writer, files []string, base uintptr, target string) error {
	var errs []error
	for _, path := range files {
		img, err := open(path, base)
		if err != nil {
			missing.Fprintf(out, "%s: %v\n", path, err)
			errs = append(errs, err)
			continue
		}
		if err = scan(out, img, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// scan resolves every matching hookable against img and prints one line per function.
func scan(out io.Writer, img *module.Image, target string) error {
	images := module.NewImages(0, img)
	set, err := hooks.New(hookable.Env{Loader: images, Log: zap.NewNop()})
	if err != nil {
		return err
	}
	info := img.Info()
	resolvers := slices.DeleteFunc(set.Resolvers(), func(r hooks.Resolver) bool {
		if target != "" {
			return r.Name() != target
		}
		_, ok := r.PickBest([]module.Info{info})
		return !ok
	})
	if len(resolvers) == 0 {
		header.Fprintf(out, "%s: no hookable module\n", info.Name())
		return nil
	}
	in := module.Inspect(images, info)
	for _, r := range resolvers {
		header.Fprintf(out, "%s (%s):\n", info, r.Name())
		res := r.Resolve(in)
		for _, e := range r.Entries() {
			if addr, ok := res.Addrs[e.Name]; ok {
				found.Fprintf(out, "  ✔ %s %#x\n", e.Name, addr)
			} else {
				missing.Fprintf(out, "  ❌ %s (%s)\n", e.Name, e.Locate)
			}
		}
	}
	return nil
}

func open(path string, base uintptr) (*module.Image, error) {
	m, err := loader.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	return loader.Map(m, base)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/colors"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
	"github.com/blacktop/il2cpp-decompile/internal/utils"
	"github.com/caarlos0/ctrlc"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(toolchainCmd)
	toolchainCmd.AddCommand(toolchainLsCmd)
	toolchainCmd.AddCommand(toolchainInstallCmd)
}

// toolchainCmd represents the toolchain command
var toolchainCmd = &cobra.Command{
	Use:     "toolchain",
	Aliases: []string{"tc"},
	Short:   "Manage Il2CppDumper, the JDK and Ghidra",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// toolchainLsCmd represents the toolchain ls command
var toolchainLsCmd = &cobra.Command{
	Use:           "ls",
	Aliases:       []string{"l", "list"},
	Short:         "List installed tools",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		tc, err := newToolchain(conf, false)
		if err != nil {
			return err
		}
		installed, err := tc.Installed()
		if err != nil {
			return err
		}
		return printToolchain(os.Stdout, tc, installed)
	},
}

func printToolchain(out io.Writer, tc *toolchain.Manager, installed []toolchain.Installation) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, colors.Header().Sprint("TOOL\tVERSION\tPATH"))
	for _, name := range toolchain.Names {
		var found []toolchain.Installation
		for _, i := range installed {
			if i.Tool == name {
				found = append(found, i)
			}
		}
		if len(found) == 0 {
			t, err := tc.Tool(name)
			if err != nil {
				return err
			}
			source := "set " + t.URLKey
			if t.URL != "" {
				source = t.URL
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, colors.Missing().Sprint("missing"), source)
			continue
		}
		for idx, i := range found {
			version := "-"
			if i.Version != nil {
				version = i.Version.String()
			}
			path := i.Path
			if rel, err := filepath.Rel(tc.AppsDir, i.Path); err == nil {
				path = rel
			}
			if idx == 0 {
				path = colors.Done().Sprint(path)
			} else {
				// only the first match in sorted order is used
				path = colors.Faint().Sprint(path + " (ignored)")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, version, path)
		}
	}
	return w.Flush()
}

// toolchainInstallCmd represents the toolchain install command
var toolchainInstallCmd = &cobra.Command{
	Use:   "install [TOOL]...",
	Short: "Install missing tools and the managed python runtime",
	Example: heredoc.Doc(`
		# Install everything that is missing
		❯ il2cpp-decompile toolchain install

		# Only Ghidra
		❯ il2cpp-decompile toolchain install Ghidra`),
	ValidArgs:     toolchain.Names,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		names := args
		if len(names) == 0 {
			names = toolchain.Names
		}
		tc, err := newToolchain(conf, false)
		if err != nil {
			return err
		}
		runner := tool.NewExecRunner()

		return ctrlc.Default.Run(cmd.Context(), func() error {
			for _, name := range names {
				path, err := tc.Ensure(cmd.Context(), name)
				if err != nil {
					return err
				}
				utils.Indent(log.WithField("path", path).Info, 2)(name)
			}
			if len(args) > 0 && !slices.ContainsFunc(args, isPythonTool) {
				return nil
			}
			env, err := newProvisioner(conf, runner).Ensure(cmd.Context())
			if err != nil {
				return err
			}
			utils.Indent(log.WithField("path", env.Python).Info, 2)("python")
			return nil
		})
	},
}

// isPythonTool reports whether name runs inside the managed runtime.
func isPythonTool(name string) bool {
	return strings.EqualFold(name, toolchain.Converter) || strings.EqualFold(name, toolchain.Ghidra)
}

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
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/il2cpp-decompile/internal/cache"
	"github.com/blacktop/il2cpp-decompile/internal/colors"
	"github.com/blacktop/il2cpp-decompile/internal/fingerprint"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheRmCmd)

	cacheRmCmd.Flags().BoolP("all", "a", false, "Remove every work directory")
	viper.BindPFlag("cache.rm.all", cacheRmCmd.Flags().Lookup("all"))
}

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the per binary work directories",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// cacheLsCmd represents the cache ls command
var cacheLsCmd = &cobra.Command{
	Use:           "ls",
	Aliases:       []string{"l", "list"},
	Short:         "List work directories",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCache(conf)
		if err != nil {
			return err
		}
		entries, err := c.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			log.WithField("dir", c.Root).Info("No work directories found")
			return nil
		}
		return printEntries(os.Stdout, entries, time.Now())
	},
}

func printEntries(out io.Writer, entries []cache.Entry, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, colors.Header().Sprint("FINGERPRINT\tGAME\tPROJECT\tSIZE\tMODIFIED"))
	for _, e := range entries {
		game := "-"
		if e.Manifest != nil {
			game = e.Manifest.Game
		}
		project := colors.Missing().Sprint("incomplete")
		if e.Complete() {
			project = colors.Done().Sprint(strings.Join(e.Projects, ","))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			colors.Fingerprint().Sprint(e.Fingerprint),
			game,
			project,
			humanize.Bytes(uint64(e.Size)),
			humanize.RelTime(e.ModTime, now, "ago", "from now"),
		)
	}
	return w.Flush()
}

// cacheRmCmd represents the cache rm command
var cacheRmCmd = &cobra.Command{
	Use:     "rm [FINGERPRINT]...",
	Aliases: []string{"remove"},
	Short:   "Remove work directories",
	Example: heredoc.Doc(`
		# Remove a single work directory
		❯ il2cpp-decompile cache rm 1a2b3c4d

		# Remove everything
		❯ il2cpp-decompile cache rm --all`),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		all := viper.GetBool("cache.rm.all")
		if all == (len(args) > 0) {
			return fmt.Errorf("pass either fingerprints or --all")
		}
		c, err := newCache(conf)
		if err != nil {
			return err
		}

		var digests []fingerprint.Digest
		if all {
			entries, err := c.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				d, err := fingerprint.Parse(e.Fingerprint)
				if err != nil {
					return err
				}
				digests = append(digests, d)
			}
		} else {
			for _, arg := range args {
				d, err := fingerprint.Parse(arg)
				if err != nil {
					return err
				}
				digests = append(digests, d)
			}
		}

		for _, d := range digests {
			if err := c.Remove(d); err != nil {
				return fmt.Errorf("failed to remove %s: %w", d, err)
			}
			log.WithField("fingerprint", d.String()).Info("Removed")
		}
		return nil
	},
}

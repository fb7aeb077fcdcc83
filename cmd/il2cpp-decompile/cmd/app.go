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
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/blacktop/il2cpp-decompile/internal/cache"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/config"
	"github.com/blacktop/il2cpp-decompile/internal/download"
	"github.com/blacktop/il2cpp-decompile/internal/toolchain"
	"github.com/blacktop/il2cpp-decompile/internal/venv"
	"golang.org/x/term"
)

func newToolchain(conf *config.Config, pick bool) (*toolchain.Manager, error) {
	urls, err := config.LoadDownloads()
	if err != nil {
		return nil, err
	}
	choose := toolchain.First
	if pick {
		choose = askToolchain(conf.AppsDir())
	}
	// progress bars only make sense on a terminal
	progress := term.IsTerminal(int(os.Stdout.Fd()))
	dl := download.NewDownloader(conf.AppsDir(), conf.Proxy, conf.Insecure, progress)
	return toolchain.NewManager(conf.AppsDir(), toolchain.Tools(conf.Patterns, urls), dl, choose), nil
}

// askToolchain lets the user pick between several installations of a tool.
func askToolchain(appsDir string) toolchain.Chooser {
	return func(name string, matches []string) (string, error) {
		options := make([]string, 0, len(matches))
		for _, m := range matches {
			rel, err := filepath.Rel(appsDir, m)
			if err != nil {
				rel = m
			}
			options = append(options, rel)
		}
		choice := 0
		prompt := &survey.Select{
			Message: fmt.Sprintf("Select the %s installation to use:", name),
			Options: options,
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			if err == terminal.InterruptErr {
				return "", fmt.Errorf("no %s installation selected", name)
			}
			return "", err
		}
		return matches[choice], nil
	}
}

func newCache(conf *config.Config) (*cache.Cache, error) {
	return cache.New(conf.CacheDir)
}

func newProvisioner(conf *config.Config, runner tool.Runner) venv.Provisioner {
	return &venv.Manager{
		Dir:    conf.VenvDir(),
		Python: conf.Patterns.Python,
		Base:   conf.Python,
		Runner: runner,
	}
}

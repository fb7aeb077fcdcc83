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
	stdctx "context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/il2cpp-decompile/internal/colors"
	"github.com/blacktop/il2cpp-decompile/internal/commands/tool"
	"github.com/blacktop/il2cpp-decompile/internal/config"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline"
	"github.com/blacktop/il2cpp-decompile/internal/pipeline/context"
	"github.com/caarlos0/ctrlc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// Verbose boolean flag for verbose logging
	Verbose bool
	// Color boolean flag for colorized output
	Color bool
	// AppVersion stores the plugin's version
	AppVersion string
	// AppBuildCommit stores the plugin's build commit
	AppBuildCommit string

	// conf is loaded before any command runs
	conf *config.Config
	// logFile receives warnings and the details of a fatal error
	logFile *os.File
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "il2cpp-decompile [GAME_DIR | GameAssembly.dll]",
	Short: "Decompile Unity IL2CPP games with Il2CppDumper and Ghidra",
	Long: heredoc.Doc(`
		Dump the IL2CPP metadata of a Unity game, convert the recovered types into
		a header Ghidra understands and import GameAssembly.dll into a Ghidra
		project with all of it applied. Results are cached per binary in
		./il2cpp-decompile/<fingerprint> and reopened on the next run.

		Without an argument Ghidra is opened with no project.`),
	Example: heredoc.Doc(`
		# Decompile a game (first run installs the toolchain)
		❯ il2cpp-decompile "C:\Games\MyGame"

		# Same thing, pointing at the binary
		❯ il2cpp-decompile "C:\Games\MyGame\GameAssembly.dll"

		# Re-run the analysis even if a project exists
		❯ il2cpp-decompile --force "C:\Games\MyGame"

		# Just open Ghidra
		❯ il2cpp-decompile`),
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		var target string
		if len(args) > 0 {
			target = args[0]
		}

		runner := tool.NewExecRunner()
		tc, err := newToolchain(conf, viper.GetBool("pick-toolchain"))
		if err != nil {
			return err
		}
		c, err := newCache(conf)
		if err != nil {
			return err
		}

		cctx, cancel := stdctx.WithCancel(stdctx.Background())
		defer cancel()

		ctx := context.Wrap(cctx, conf)
		ctx.Target = target
		ctx.Runner = runner
		ctx.Toolchain = tc
		ctx.Cache = c

		if err := ctrlc.Default.Run(ctx, func() error {
			return pipeline.Execute(ctx, newProvisioner(conf, runner))
		}); err != nil {
			if errors.As(err, &ctrlc.ErrorCtrlC{}) {
				// kills whatever child process is still running
				cancel()
				log.Warn("Interrupted")
			}
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		report(err)
		os.Exit(ExitCode(err))
	}
}

// ExitCode maps err to the process exit code: the exit code of a failed
// delegated tool, the errno of a failed system call, 130 for an interrupt
// and 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *tool.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if errors.As(err, &ctrlc.ErrorCtrlC{}) {
		return 130
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}

func report(err error) {
	colors.Error().Fprintf(os.Stderr, "Error: %v\n", err)
	if logFile == nil {
		return
	}
	fields := log.Fields{"exit_code": ExitCode(err)}
	var exitErr *tool.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Output) > 0 {
		fields["output"] = string(exitErr.Output)
	}
	details := &log.Logger{Handler: fileHandler(logFile), Level: log.DebugLevel}
	details.WithFields(fields).WithError(err).Error("run failed")
	fmt.Fprintf(os.Stderr, "Detailed error info has been logged to %s\n", logFile.Name())
}

func init() {
	log.SetHandler(clihander.Default)

	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/il2cpp-decompile/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&Color, "color", false, "colorize output")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the managed runtime and toolchain (default is $HOME/.il2cpp-decompile)")
	rootCmd.PersistentFlags().String("cache-dir", "", "root of the per binary work directories (default is ./il2cpp-decompile)")
	rootCmd.PersistentFlags().String("proxy", "", "HTTP/HTTPS proxy used for downloads")
	rootCmd.PersistentFlags().Bool("insecure", false, "do not verify TLS certificates when downloading")
	rootCmd.PersistentFlags().String("python", "", "python interpreter used to create the managed runtime")
	rootCmd.PersistentFlags().Bool("pick-toolchain", false, "prompt when several installations of a tool are found")
	rootCmd.Flags().BoolP("force", "f", false, "ignore an existing project and decompile again")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("cache-dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("insecure", rootCmd.PersistentFlags().Lookup("insecure"))
	viper.BindPFlag("python", rootCmd.PersistentFlags().Lookup("python"))
	viper.BindPFlag("pick-toolchain", rootCmd.PersistentFlags().Lookup("pick-toolchain"))
	viper.BindPFlag("force", rootCmd.Flags().Lookup("force"))
	viper.BindEnv("color", "CLICOLOR")
	// Settings
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "il2cpp-decompile"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("il2cpp_decompile")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.WithField("file", viper.ConfigFileUsed()).Debug("Using config file")
	}
}

// setup loads the configuration, opens the log file and reads the .env file.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if conf, err = config.LoadConfig(); err != nil {
		return err
	}
	if conf.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	if viper.IsSet("color") {
		color := viper.GetBool("color")
		colors.Init(&color)
	}
	if logFile, err = openLogFile(conf.LogsDir(), time.Now()); err != nil {
		return err
	}
	log.SetHandler(logHandler(clihander.Default, logFile))
	return config.LoadEnvFile(conf.EnvFile())
}

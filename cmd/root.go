/*
Copyright © 2020 hit.zhangjie@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hitzhangjie/tracectl/cmd/debug"
	"github.com/hitzhangjie/tracectl/pkg/config"
	"github.com/hitzhangjie/tracectl/pkg/logflags"
	"github.com/hitzhangjie/tracectl/pkg/target"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracectl",
	Short: "tracectl, a ptrace based execution control debugger",
	Long: `tracectl controls the execution of a Linux process through ptrace:
breakpoints, single step, step until an address, continue all threads and
handing a stopped process over to another tool and back.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logflags.Setup(viper.GetBool("log"), viper.GetString("log-output"), "")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logflags.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tracectl/config.yml)")
	rootCmd.PersistentFlags().Bool("log", false, "enable debugging log")
	rootCmd.PersistentFlags().String("log-output", "", "comma separated list of layers that should log: target, ptrace, shell")
	rootCmd.PersistentFlags().Bool("syscall-hooks", false, "stop threads at syscall entry and exit when continuing")

	for _, name := range []string{"log", "log-output", "syscall-hooks"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var (
		conf *config.Config
		err  error
	)
	if cfgFile != "" {
		conf, err = config.LoadFile(viper.GetViper(), cfgFile)
		debug.ConfigPath = cfgFile
	} else {
		conf, err = config.Load(viper.GetViper())
		debug.ConfigPath, _ = config.DefaultPath()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v, using defaults\n", err)
		conf = config.Default()
	}
	debug.Config = conf
}

// engineOptions derives the execution control options from the configuration.
func engineOptions() []target.Option {
	return []target.Option{
		target.WithSyscallHooks(viper.GetBool("syscall-hooks")),
	}
}

// runSession starts the interactive shell and cleans the process up once
// the shell is left.
func runSession() {
	debug.CurrentSession = debug.NewDebugSession().AtExit(debug.Cleanup)
	debug.CurrentSession.Start()
}

/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/target"
)

// execCmd represents the exec command
var execCmd = &cobra.Command{
	Use:   "exec <prog> [args...]",
	Short: "调试可执行程序",
	Long: `调试可执行程序，进程启动后停在第一条指令处。

退出调试会话时，被调试进程会被杀死。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("参数错误")
		}

		// start tracee and wait tracee stopped
		dbp, err := target.NewProcess(args[0], args[1:], engineOptions()...)
		if err != nil {
			return err
		}
		fmt.Printf("process %d stopped\n", dbp.Pid)
		target.DBPProcess = dbp
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		// after debugger session finished, we should kill tracee because it's started by debugger
		runSession()
	},
}

func init() {
	execCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(execCmd)
}

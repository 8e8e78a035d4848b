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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hitzhangjie/tracectl/pkg/target"
)

// attachCmd represents the attach command
var attachCmd = &cobra.Command{
	Use:   "attach <pid>",
	Short: "调试运行中进程",
	Long: `调试运行中进程，进程的所有线程都会被跟踪。

退出调试会话时，进程会被detach并继续运行。`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if len(args) != 1 {
			return errors.New("参数错误")
		}

		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%s invalid pid", args[0])
		}

		dbp, err := target.AttachTargetProcess(pid, engineOptions()...)
		if err != nil {
			return err
		}
		fmt.Printf("process %d (%s) attached, %d threads\n", pid, dbp.Command, len(dbp.Threads()))
		target.DBPProcess = dbp
		return nil
	},
	PostRun: func(cmd *cobra.Command, args []string) {
		// after debugger session finished, tracee is detached and keeps running
		runSession()
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

package debug

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/hitzhangjie/tracectl/pkg/target"
)

var errNoProcess = errors.New("please attach to a process first")

// currentProcess 返回当前被调试进程，进程不存在、已退出或已migrate时返回错误
func currentProcess() (*target.Process, error) {
	dbp, err := lookupProcess()
	if err != nil {
		return nil, err
	}
	if dbp.Migrated() {
		return nil, fmt.Errorf("process %d: %w", dbp.Pid, target.ErrMigrated)
	}
	return dbp, nil
}

// lookupProcess is currentProcess without the migrated check, used by
// reattach.
func lookupProcess() (*target.Process, error) {
	dbp := target.DBPProcess
	if dbp == nil {
		return nil, errNoProcess
	}
	if dbp.Exited() {
		return nil, fmt.Errorf("process %d has exited", dbp.Pid)
	}
	return dbp, nil
}

func parseAddress(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address: %s", s)
	}
	return v, nil
}

func parseValue(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value: %s", s)
	}
	return v, nil
}

// parseTid 解析线程ID参数，未指定时使用线程组leader
func parseTid(dbp *target.Process, args []string, idx int) (int, error) {
	if len(args) <= idx {
		return dbp.Pid, nil
	}
	tid, err := strconv.Atoi(args[idx])
	if err != nil || tid <= 0 {
		return 0, fmt.Errorf("invalid thread id: %s", args[idx])
	}
	return tid, nil
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// printEvents 打印进程停止后各线程的状态
func printEvents(w io.Writer, events []target.ThreadStatus) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no thread changed state")
		return
	}
	for _, ev := range events {
		fmt.Fprintln(w, ev.String())
	}
}

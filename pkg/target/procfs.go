package target

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// Process statuses
const (
	statusSleeping  = 'S'
	statusRunning   = 'R'
	statusTraceStop = 't'
	statusZombie    = 'Z'
	statusDead      = 'X'

	// Kernel 2.6 reports trace stops as T, newer kernels use it for job
	// control stops only.
	statusTraceStopT = 'T'
)

var procRoot = "/proc"

// ProcComm read /proc/pid/comm or /proc/pid/stat to load the command name of process.
func ProcComm(pid int) (string, error) {
	comm, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "comm"))
	if err == nil {
		// removes newline character
		comm = bytes.TrimSuffix(comm, []byte("\n"))
	}

	if len(comm) == 0 {
		stat, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "stat"))
		if err != nil {
			return "", fmt.Errorf("could not read proc stat: %v", err)
		}
		expr := fmt.Sprintf("%d\\s*\\((.*)\\)", pid)
		rexp, err := regexp.Compile(expr)
		if err != nil {
			return "", fmt.Errorf("regexp compile error: %v", err)
		}
		match := rexp.FindSubmatch(stat)
		if match == nil {
			return "", fmt.Errorf("no match found using regexp '%s' in /proc/%d/stat", expr, pid)
		}
		comm = match[1]
	}
	return string(comm), nil
}

// ProcArgs read /proc/pid/cmdline to load the command arguments of process
func ProcArgs(pid int) ([]string, error) {
	dat, err := os.ReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return nil, err
	}
	dat = bytes.TrimSuffix(dat, []byte{0})
	if len(dat) == 0 {
		return nil, nil
	}
	return strings.Split(string(dat), string([]byte{0}))[1:], nil
}

// ProcThreads lists the thread ids under /proc/pid/task in ascending order.
func ProcThreads(pid int) ([]int, error) {
	paths, err := filepath.Glob(filepath.Join(procRoot, strconv.Itoa(pid), "task", "*"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("process %d not existed", pid)
	}
	tids := make([]int, 0, len(paths))
	for _, p := range paths {
		tid, err := strconv.Atoi(filepath.Base(p))
		if err != nil {
			return nil, err
		}
		tids = append(tids, tid)
	}
	slices.Sort(tids)
	return tids, nil
}

// procState returns the state field of /proc/pid/stat, or 0 if it cannot
// be read.
func procState(pid int) rune {
	f, err := os.Open(filepath.Join(procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return '\000'
	}
	defer f.Close()

	// The second field is the task name in parenthesis. It may contain
	// both parenthesis and spaces, so the state is the first field after
	// the last closing one.
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return '\000'
	}
	i := strings.LastIndexByte(line, ')')
	if i < 0 {
		return '\000'
	}
	fields := strings.Fields(line[i+1:])
	if len(fields) == 0 || fields[0] == "" {
		return '\000'
	}
	return rune(fields[0][0])
}

// ProcAlive reports whether pid exists and is not a zombie.
func ProcAlive(pid int) bool {
	switch procState(pid) {
	case '\000', statusZombie, statusDead:
		return false
	}
	return true
}

// ProcState returns the scheduler state letter of task tid, "?" when it
// cannot be read.
func ProcState(tid int) string {
	st := procState(tid)
	if st == '\000' {
		return "?"
	}
	return string(st)
}

// Package logflags configures the per-layer loggers used across tracectl.
//
// Every layer has its own flag, loggers of disabled layers only report
// warnings and errors. Layers are enabled with `--log --log-output=target,ptrace`.
package logflags

import (
	"errors"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"

	isatty "github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	target = false
	ptrace = false
	shell  = false
)

var logOut io.Writer

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New()
	if logOut != nil {
		logger.Out = logOut
	} else {
		logger.Out = os.Stderr
	}
	logger.Formatter = textFormatter(logger.Out)
	logger.Level = logrus.DebugLevel
	if !flag {
		logger.Level = logrus.WarnLevel
	}
	return logger.WithFields(fields)
}

func textFormatter(out io.Writer) *logrus.TextFormatter {
	colors := false
	if f, ok := out.(*os.File); ok {
		colors = isatty.IsTerminal(f.Fd())
	}
	return &logrus.TextFormatter{
		DisableColors:   !colors,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	}
}

// Target returns true if the execution control engine should log.
func Target() bool {
	return target
}

// TargetLogger returns a logger for the pkg/target layer.
func TargetLogger() *logrus.Entry {
	return makeLogger(target, logrus.Fields{"layer": "target"})
}

// Ptrace returns true if raw ptrace requests should be logged.
func Ptrace() bool {
	return ptrace
}

// PtraceLogger returns a logger for the pkg/ptrace layer.
func PtraceLogger() *logrus.Entry {
	return makeLogger(ptrace, logrus.Fields{"layer": "ptrace"})
}

// Shell returns true if the interactive shell should log.
func Shell() bool {
	return shell
}

// ShellLogger returns a logger for the interactive shell.
func ShellLogger() *logrus.Entry {
	return makeLogger(shell, logrus.Fields{"layer": "shell"})
}

// Setup sets the layer flags based on the contents of logstr.
// If logDest is not empty logs are appended to that file.
func Setup(logFlag bool, logstr, logDest string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if logDest != "" {
		f, err := os.OpenFile(logDest, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		logOut = f
		log.SetOutput(f)
	}
	if !logFlag {
		if logDest == "" {
			log.SetOutput(ioutil.Discard)
		}
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "target"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch strings.TrimSpace(logcmd) {
		case "target":
			target = true
		case "ptrace":
			ptrace = true
		case "shell":
			shell = true
		}
	}
	return nil
}

// Close closes the log destination opened by Setup, if any.
func Close() {
	if c, ok := logOut.(io.Closer); ok {
		c.Close()
	}
	logOut = nil
}

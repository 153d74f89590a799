// Package logflags configures the loggers used by the various layers of
// jdb. Logging for a layer is off by default and enabled through the
// --log-output flag.
package logflags

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var session = false
var listener = false
var wire = false
var terminal = false

var logOut io.WriteCloser

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	lg := logrus.New()
	lg.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if logOut != nil {
		lg.Out = logOut
	}
	lg.Level = logrus.DebugLevel
	if !flag {
		lg.Level = logrus.ErrorLevel
	}
	return lg.WithFields(fields)
}

// Session returns true if the session package should log.
func Session() bool {
	return session
}

// SessionLogger returns a logger for the session package.
func SessionLogger() *logrus.Entry {
	return makeLogger(session, logrus.Fields{"layer": "session"})
}

// Listener returns true if the breakpoint listener should log.
func Listener() bool {
	return listener
}

// ListenerLogger returns a logger for the breakpoint event listener.
func ListenerLogger() *logrus.Entry {
	return makeLogger(listener, logrus.Fields{"layer": "session", "kind": "listener"})
}

// Wire returns true if signal registry lookups should be logged.
func Wire() bool {
	return wire
}

// WireLogger returns a logger for the signal registry.
func WireLogger() *logrus.Entry {
	return makeLogger(wire, logrus.Fields{"layer": "wire"})
}

// Terminal returns true if the terminal package should log.
func Terminal() bool {
	return terminal
}

// TerminalLogger returns a logger for the terminal package.
func TerminalLogger() *logrus.Entry {
	return makeLogger(terminal, logrus.Fields{"layer": "terminal"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the logging flags based on the contents of logstr. If
// logDest is non-empty logs are redirected to the file or file
// descriptor it describes.
func Setup(logFlag bool, logstr, logDest string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "jdb-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "session"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "session":
			session = true
		case "listener":
			listener = true
		case "wire":
			wire = true
		case "terminal":
			terminal = true
		}
	}
	return nil
}

// Close closes the logger output file, if any.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

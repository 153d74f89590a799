// Package terminal implements the interactive command loop: reading
// user input and dispatching to the session core.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"

	"github.com/go-jdb/jdb/pkg/config"
	"github.com/go-jdb/jdb/pkg/logflags"
	"github.com/go-jdb/jdb/pkg/session"
)

const (
	historyFile                 string = ".jdb_history"
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"
)

const (
	ansiBlack   = 30
	ansiBlue    = 34
	ansiBrWhite = 97
)

// Term represents the terminal running jdb.
type Term struct {
	sess   *session.Session
	conf   *config.Config
	prompt string
	line   *liner.State
	cmds   *Commands
	dumb   bool
	stdout io.Writer
	log    *logrus.Entry

	// async carries messages that must not wait for the command loop:
	// breakpoint hit notifications and forced-detach reports.
	async     chan string
	asyncOnce sync.Once
	asyncDone chan struct{}
}

// New returns a new Term bound to the given session.
func New(sess *session.Session, conf *config.Config) *Term {
	if conf == nil {
		conf = &config.Config{}
	}

	var w io.Writer
	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb"
	if dumb {
		w = os.Stdout
	} else {
		w = getColorableWriter()
	}

	if conf.SourceListLineColor < ansiBlack || conf.SourceListLineColor > ansiBrWhite {
		conf.SourceListLineColor = ansiBlue
	}

	t := &Term{
		sess:      sess,
		conf:      conf,
		prompt:    "(jdb) ",
		line:      liner.NewLiner(),
		dumb:      dumb,
		stdout:    w,
		log:       logflags.TerminalLogger(),
		async:     make(chan string, 64),
		asyncDone: make(chan struct{}),
	}
	t.cmds = DebugCommands(sess)
	if conf.Aliases != nil {
		t.cmds.Merge(conf.Aliases)
	}

	go t.drainAsync()
	return t
}

// drainAsync serializes asynchronous messages onto the terminal without
// blocking their producers.
func (t *Term) drainAsync() {
	defer close(t.asyncDone)
	for msg := range t.async {
		fmt.Fprintf(t.stdout, "\r%s\n", msg)
	}
}

// PrintAsync queues a message on the asynchronous output channel. It is
// handed to the session as its async reporting sink.
func (t *Term) PrintAsync(msg string) {
	select {
	case t.async <- msg:
	case <-t.asyncDone:
	}
}

// Ask prompts the user with question and returns the typed answer. It
// is handed to the session for the attach confirmation.
func (t *Term) Ask(question string) (string, error) {
	return t.line.Prompt(question)
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	t.asyncOnce.Do(func() { close(t.async) })
	t.line.Close()
}

// Run begins running jdb in the terminal.
func (t *Term) Run() (int, error) {
	defer t.Close()

	t.line.SetCompleter(t.complete)

	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Printf("Unable to load history file: %v.", err)
	}
	f, err := os.Open(fullHistoryFile)
	if err != nil {
		f, err = os.Create(fullHistoryFile)
		if err != nil {
			fmt.Printf("Unable to open history file: %v. History will not be saved for this session.", err)
		}
	}
	if f != nil {
		t.line.ReadHistory(f)
		f.Close()
	}

	fmt.Println("Type 'help' for list of commands.")

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Println("exit")
				return t.handleExit()
			}
			return 1, fmt.Errorf("prompt for input failed")
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

// complete returns the completions for a partial input line: command
// aliases for the first word, registered class names for the argument
// of commands that take one.
func (t *Term) complete(line string) (c []string) {
	idx := strings.LastIndex(line, " ")
	if idx < 0 {
		for _, cmd := range t.cmds.cmds {
			for _, alias := range cmd.aliases {
				if strings.HasPrefix(alias, strings.ToLower(line)) {
					c = append(c, alias)
				}
			}
		}
		return
	}

	switch strings.TrimSpace(line[:idx]) {
	case "break", "b", "clear", "enter", "e", "list", "l", "source", "src":
		prefix, word := line[:idx+1], line[idx+1:]
		for _, class := range t.sess.Source().Complete(word) {
			c = append(c, prefix+class)
		}
	}
	return
}

// Println prints a line to the terminal, highlighting prefix.
func (t *Term) Println(prefix, str string) {
	if !t.dumb {
		terminalColorEscapeCode := fmt.Sprintf(terminalHighlightEscapeCode, t.conf.SourceListLineColor)
		prefix = fmt.Sprintf("%s%s%s", terminalColorEscapeCode, prefix, terminalResetEscapeCode)
	}
	fmt.Fprintf(t.stdout, "%s%s\n", prefix, str)
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit() (int, error) {
	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Println("Error saving history file:", err)
	} else {
		if f, err := os.OpenFile(fullHistoryFile, os.O_RDWR, 0666); err == nil {
			_, err = t.line.WriteHistory(f)
			if err != nil {
				fmt.Println("readline history error:", err)
			}
			f.Close()
		}
	}

	if t.sess.Attached() {
		if err := t.sess.Detach(false); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

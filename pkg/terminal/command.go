package terminal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"

	"github.com/go-jdb/jdb/pkg/config"
	"github.com/go-jdb/jdb/pkg/session"
	"github.com/go-jdb/jdb/pkg/wire"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for the jdb terminal process.
type Commands struct {
	cmds []command
	sess *session.Session
}

// byFirstAlias will sort by the first
// alias of a command.
type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands(sess *session.Session) *Commands {
	c := &Commands{sess: sess}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"jvms"}, cmdFn: c.jvms, helpMsg: "Lists the currently attachable JVMs."},
		{aliases: []string{"attach"}, cmdFn: c.attach, helpMsg: `Attaches to the JVM running at the given pid.

	attach <pid>

Spawns the breakpoint listener for the attached JVM. Attaching while
another JVM is attached asks for confirmation first.`},
		{aliases: []string{"detach"}, cmdFn: c.detach, helpMsg: "Detaches from the currently attached JVM."},
		{aliases: []string{"break", "b"}, cmdFn: c.breakpoint, helpMsg: `Sets a breakpoint.

	break <class> <line>
	break <line>

The second form uses the currently entered class.`},
		{aliases: []string{"clear"}, cmdFn: c.clear, helpMsg: `Deletes a breakpoint.

	clear <class> <line>
	clear <line>`},
		{aliases: []string{"breakpoints", "bps"}, cmdFn: c.breakpoints, helpMsg: "Prints all registered breakpoints."},
		{aliases: []string{"enter", "e"}, cmdFn: c.enter, helpMsg: `Enters a class for inspection.

	enter <class>

Subsequent break/clear/list commands may omit the class name.`},
		{aliases: []string{"leave"}, cmdFn: c.leave, helpMsg: "Exits from an entered class."},
		{aliases: []string{"source", "src"}, cmdFn: c.source, helpMsg: `Registers the source file path for a class.

	source <class> <path>`},
		{aliases: []string{"sources"}, cmdFn: c.sources, helpMsg: "Lists classes with registered source paths."},
		{aliases: []string{"list", "l"}, cmdFn: c.list, helpMsg: `Shows source code around a location.

	list
	list <line>

Without arguments shows the location of the active breakpoint; with a
line number shows the currently entered class at that line.`},
		{aliases: []string{"frames", "history"}, cmdFn: c.frames, helpMsg: "Prints the history of captured call stacks, one per breakpoint hit."},
		{aliases: []string{"bt", "stack"}, cmdFn: c.stacktrace, helpMsg: "Prints the call stack captured at the most recent breakpoint hit."},
		{aliases: []string{"resume", "c"}, cmdFn: c.resume, helpMsg: "Resumes execution past the active breakpoint."},
		{aliases: []string{"close-on-detach"}, cmdFn: c.closeOnDetach, helpMsg: `Controls whether detach terminates the target JVM.

	close-on-detach <on|off>`},
		{aliases: []string{"config"}, cmdFn: c.config, helpMsg: `Changes configuration parameters.

	config -list
	config save

-list prints the current configuration; save writes it to the
configuration file.`},
		{aliases: []string{"signals"}, cmdFn: c.signals, helpMsg: "Prints the wire signal registry tables."},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: "Exit the debugger."},
	}

	sort.Sort(byFirstAlias(c.cmds))
	return c
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

var noCmdError = errors.New("command not available")

func noCmdAvailable(t *Term, args string) error {
	return noCmdError
}

func nullCommand(t *Term, args string) error {
	return nil
}

// Find returns the function for the command with the given name or alias.
func (c *Commands) Find(cmdstr string) cmdfunc {
	// If <enter> use last command, if there was one.
	if cmdstr == "" {
		return nullCommand
	}

	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}

	return noCmdAvailable
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	cmdname := vals[0]
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	return c.Find(cmdname)(t, args)
}

// splitArgs splits a command argument string the way a shell would,
// respecting quoting.
func splitArgs(args string) ([]string, error) {
	if args == "" {
		return nil, nil
	}
	v, err := argv.Argv(args, func(s string) (string, error) {
		return "", fmt.Errorf("backtick not supported in '%s'", s)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal command line '%s'", args)
	}
	return v[0], nil
}

func (c *Commands) help(t *Term, args string) error {
	if args != "" {
		for _, cmd := range c.cmds {
			for _, alias := range cmd.aliases {
				if alias == args {
					fmt.Fprintln(t.stdout, cmd.helpMsg)
					return nil
				}
			}
		}
		return noCmdError
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 0, '-', 0)
	for _, cmd := range c.cmds {
		h := cmd.helpMsg
		if idx := strings.Index(h, "\n"); idx >= 0 {
			h = h[:idx]
		}
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
		} else {
			fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

func (c *Commands) jvms(t *Term, args string) error {
	pids, err := c.sess.ListJVMs()
	if err != nil {
		return err
	}
	ids := make([]int, 0, len(pids))
	for pid := range pids {
		ids = append(ids, pid)
	}
	sort.Ints(ids)
	for _, pid := range ids {
		fmt.Fprintf(t.stdout, "%d: %s\n", pid, pids[pid])
	}
	return nil
}

func (c *Commands) attach(t *Term, args string) error {
	if args == "" {
		return errors.New("you must provide a pid")
	}
	pid, err := strconv.Atoi(args)
	if err != nil {
		return fmt.Errorf("invalid pid: %s", args)
	}
	return c.sess.Attach(pid)
}

func (c *Commands) detach(t *Term, args string) error {
	if !c.sess.Attached() {
		fmt.Fprintln(t.stdout, "not attached")
		return nil
	}
	return c.sess.Detach(false)
}

// classAndLine parses "<class> <line>" or "<line>" argument forms, the
// latter using the currently entered class.
func (c *Commands) classAndLine(args string) (string, int, error) {
	v, err := splitArgs(args)
	if err != nil {
		return "", 0, err
	}
	switch len(v) {
	case 1:
		line, err := strconv.Atoi(v[0])
		if err != nil {
			return "", 0, fmt.Errorf("invalid line number: %s", v[0])
		}
		class := c.sess.CurrentRef()
		if class == "" {
			return "", 0, errors.New("no entered reference")
		}
		return class, line, nil
	case 2:
		line, err := strconv.Atoi(v[1])
		if err != nil {
			return "", 0, fmt.Errorf("invalid line number: %s", v[1])
		}
		return v[0], line, nil
	default:
		return "", 0, errors.New("expected <class> <line> or <line>")
	}
}

func (c *Commands) breakpoint(t *Term, args string) error {
	class, line, err := c.classAndLine(args)
	if err != nil {
		return err
	}
	if err := c.sess.RegisterBreakpoint(class, line); err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "Breakpoint set at %s:%d\n", class, line)
	return nil
}

func (c *Commands) clear(t *Term, args string) error {
	class, line, err := c.classAndLine(args)
	if err != nil {
		return err
	}
	if err := c.sess.ClearBreakpoint(class, line); err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "Breakpoint cleared at %s:%d\n", class, line)
	return nil
}

func (c *Commands) breakpoints(t *Term, args string) error {
	bps := c.sess.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(t.stdout, "no breakpoints set")
		return nil
	}
	for _, bp := range bps {
		fmt.Fprintln(t.stdout, bp)
	}
	return nil
}

func (c *Commands) enter(t *Term, args string) error {
	if args == "" {
		return errors.New("you must provide a class name")
	}
	c.sess.SetCurrentRef(args)
	fmt.Fprintf(t.stdout, "Entered %s\n", args)
	return nil
}

func (c *Commands) leave(t *Term, args string) error {
	ref := c.sess.CurrentRef()
	if ref == "" {
		fmt.Fprintln(t.stdout, "no entered reference")
		return nil
	}
	c.sess.SetCurrentRef("")
	fmt.Fprintf(t.stdout, "Exit from %s\n", ref)
	return nil
}

func (c *Commands) source(t *Term, args string) error {
	v, err := splitArgs(args)
	if err != nil {
		return err
	}
	if len(v) != 2 {
		return errors.New("expected <class> <path>")
	}
	c.sess.Source().Put(v[0], v[1])
	fmt.Fprintf(t.stdout, "Registered source for %s\n", v[0])
	return nil
}

func (c *Commands) sources(t *Term, args string) error {
	classes := c.sess.Source().Classes()
	if len(classes) == 0 {
		fmt.Fprintln(t.stdout, "no sources registered")
		return nil
	}
	for _, class := range classes {
		path, _ := c.sess.Source().PathOf(class)
		fmt.Fprintf(t.stdout, "%s: %s\n", class, path)
	}
	return nil
}

func (c *Commands) list(t *Term, args string) error {
	var class string
	var line int

	if args == "" {
		bp, _ := c.sess.ActiveBreakpoint()
		if bp == nil {
			return session.ErrNoActiveBreakpoint
		}
		loc := bp.Location()
		class, line = loc.DeclaringTypeName(), loc.LineNumber()
	} else {
		var err error
		class, line, err = c.classAndLine(args)
		if err != nil {
			return err
		}
	}

	code, err := c.sess.Source().Lookup(class, line, t.conf.Radius())
	if err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("no source for %s", class)
	}
	for _, ln := range strings.Split(code, "\n") {
		if strings.HasPrefix(ln, ">") {
			t.Println(">", strings.TrimPrefix(ln, ">"))
		} else {
			fmt.Fprintln(t.stdout, ln)
		}
	}
	return nil
}

func (c *Commands) frames(t *Term, args string) error {
	history := c.sess.History()
	if len(history) == 0 {
		fmt.Fprintln(t.stdout, "no breakpoints hit")
		return nil
	}
	for i, snap := range history {
		fmt.Fprintf(t.stdout, "%d: thread %s, %d frames\n", i, snap.ThreadName, len(snap.Frames))
	}
	return nil
}

func (c *Commands) stacktrace(t *Term, args string) error {
	history := c.sess.History()
	if len(history) == 0 {
		fmt.Fprintln(t.stdout, "no breakpoints hit")
		return nil
	}
	snap := history[len(history)-1]
	for i, frame := range snap.Frames {
		loc := frame.Location()
		fmt.Fprintf(t.stdout, "#%d %s (%s:%d)\n", i, loc.DeclaringTypeName(), loc.SourceName(), loc.LineNumber())
	}
	return nil
}

func (c *Commands) resume(t *Term, args string) error {
	if err := c.sess.ResumeActive(); err != nil {
		return err
	}
	fmt.Fprintln(t.stdout, "resumed")
	return nil
}

func (c *Commands) closeOnDetach(t *Term, args string) error {
	switch args {
	case "on":
		c.sess.SetCloseOnDetach(true)
	case "off":
		c.sess.SetCloseOnDetach(false)
	default:
		return errors.New("expected on or off")
	}
	return nil
}

func (c *Commands) config(t *Term, args string) error {
	switch args {
	case "", "-list":
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 1, ' ', 0)
		fmt.Fprintf(w, "source-list-line-color\t%d\n", t.conf.SourceListLineColor)
		fmt.Fprintf(w, "context-radius\t%d\n", t.conf.Radius())
		fmt.Fprintf(w, "close-on-detach\t%v\n", t.conf.CloseOnDetach)
		for cmd, aliases := range t.conf.Aliases {
			fmt.Fprintf(w, "alias %s\t%s\n", cmd, strings.Join(aliases, " "))
		}
		return w.Flush()
	case "save":
		return config.SaveConfig(t.conf)
	default:
		return fmt.Errorf("unknown config argument: %s", args)
	}
}

func (c *Commands) signals(t *Term, args string) error {
	wire.DefaultRegistry().Dump(t.stdout)
	return nil
}

// ExitRequestError is returned when the user
// exits jdb.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exitCommand(t *Term, args string) error {
	return ExitRequestError{}
}

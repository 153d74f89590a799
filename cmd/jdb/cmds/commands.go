// Package cmds implements the jdb command line interface.
package cmds

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-jdb/jdb/pkg/config"
	"github.com/go-jdb/jdb/pkg/jdi"
	"github.com/go-jdb/jdb/pkg/logflags"
	"github.com/go-jdb/jdb/pkg/session"
	"github.com/go-jdb/jdb/pkg/terminal"
	"github.com/go-jdb/jdb/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const jdbCommandLongDesc = `jdb is an interactive debugger front-end for JVM processes.

jdb attaches to a running JVM through the native debug-control
interface, registers breakpoints, and reports breakpoint hits together
with the surrounding source code while you inspect the captured call
stacks.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	// Main jdb root command.
	rootCommand = &cobra.Command{
		Use:   "jdb",
		Short: "jdb is a debugger front-end for JVM processes.",
		Long:  jdbCommandLongDesc,
		Run:   rootCmd,
	}
	addLogFlags(rootCommand.PersistentFlags())

	// 'attach' subcommand.
	attachCommand := &cobra.Command{
		Use:   "attach pid",
		Short: "Attach to a running JVM and begin debugging.",
		Long:  "Attach to an already running JVM and begin debugging it, dropping into the interactive command loop.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("you must provide a PID")
			}
			return nil
		},
		Run: attachCmd,
	}
	rootCommand.AddCommand(attachCommand)

	// 'version' subcommand.
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jdb Debugger\n%s\n", version.JdbVersion)
		},
	}
	rootCommand.AddCommand(versionCommand)

	return rootCommand
}

func addLogFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&log, "log", "", false, "Enable debugging logging.")
	fs.StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (session, listener, wire, terminal).")
	fs.StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")
}

func rootCmd(cmd *cobra.Command, args []string) {
	os.Exit(execute(-1))
}

func attachCmd(cmd *cobra.Command, args []string) {
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid pid: %s\n", args[0])
		os.Exit(1)
	}
	os.Exit(execute(pid))
}

// execute runs the interactive terminal, attaching to attachPid first
// when it is non-negative.
func execute(attachPid int) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	var term *terminal.Term
	sess := session.New(&session.Config{
		Manager:       jdi.Bootstrap(),
		Lister:        &jdi.JpsLister{},
		Prompt:        func(q string) (string, error) { return term.Ask(q) },
		PrintAsync:    func(msg string) { term.PrintAsync(msg) },
		ContextRadius: conf.Radius(),
		CloseOnDetach: conf.CloseOnDetach,
	})
	term = terminal.New(sess, conf)

	if attachPid >= 0 {
		if err := sess.Attach(attachPid); err != nil {
			fmt.Fprintln(os.Stderr, err)
			term.Close()
			return 1
		}
	}

	status, err := term.Run()
	if err != nil {
		fmt.Println(err)
	}
	return status
}

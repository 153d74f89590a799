package terminal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-jdb/jdb/pkg/config"
	"github.com/go-jdb/jdb/pkg/session"
)

func newTestTerm(t *testing.T) (*Term, *bytes.Buffer) {
	t.Helper()
	sess := session.New(&session.Config{
		Out:        io.Discard,
		PrintAsync: func(string) {},
		Prompt:     func(string) (string, error) { return "n", nil },
	})
	buf := &bytes.Buffer{}
	trm := &Term{
		sess:   sess,
		conf:   &config.Config{},
		stdout: buf,
		dumb:   true,
	}
	trm.cmds = DebugCommands(sess)
	return trm, buf
}

func TestCommandDefault(t *testing.T) {
	cmds := &Commands{cmds: []command{{aliases: []string{"nocmd"}, cmdFn: nullCommand}}}
	trm, _ := newTestTerm(t)

	err := cmds.Call("non-existent-command", trm)
	if err == nil {
		t.Fatal("expected error 'command not available'")
	}
	if err.Error() != "command not available" {
		t.Fatalf("wrong error %q", err.Error())
	}
}

func TestCommandReplay(t *testing.T) {
	trm, _ := newTestTerm(t)
	if err := trm.cmds.Call("", trm); err != nil {
		t.Fatalf("expected empty command to be a no-op, got %v", err)
	}
}

func TestCommandAliases(t *testing.T) {
	trm, buf := newTestTerm(t)
	for _, alias := range []string{"help", "h"} {
		buf.Reset()
		if err := trm.cmds.Call(alias, trm); err != nil {
			t.Fatalf("%s: %v", alias, err)
		}
		if !strings.Contains(buf.String(), "The following commands are available:") {
			t.Errorf("%s did not print the command list", alias)
		}
	}
}

func TestCommandMerge(t *testing.T) {
	trm, _ := newTestTerm(t)
	trm.cmds.Merge(map[string][]string{"attach": {"att"}})
	if trm.cmds.Find("att") == nil {
		t.Fatal("merged alias not found")
	}
	if err := trm.cmds.Call("att", trm); err == nil || !strings.Contains(err.Error(), "pid") {
		t.Fatalf("expected attach to complain about missing pid, got %v", err)
	}
	// Merging again must not duplicate aliases.
	trm.cmds.Merge(map[string][]string{"attach": {"att"}})
	for _, cmd := range trm.cmds.cmds {
		if cmd.aliases[0] != "attach" {
			continue
		}
		n := 0
		for _, a := range cmd.aliases {
			if a == "att" {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("alias att appears %d times", n)
		}
	}
}

func TestEnterLeave(t *testing.T) {
	trm, buf := newTestTerm(t)

	if err := trm.cmds.Call("leave", trm); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no entered reference") {
		t.Errorf("leave without enter: %q", buf.String())
	}

	buf.Reset()
	if err := trm.cmds.Call("enter com.example.Main", trm); err != nil {
		t.Fatal(err)
	}
	if trm.sess.CurrentRef() != "com.example.Main" {
		t.Errorf("current ref = %q", trm.sess.CurrentRef())
	}

	buf.Reset()
	if err := trm.cmds.Call("leave", trm); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Exit from com.example.Main") {
		t.Errorf("leave output: %q", buf.String())
	}
	if trm.sess.CurrentRef() != "" {
		t.Errorf("current ref not cleared: %q", trm.sess.CurrentRef())
	}
}

func TestSourceCommands(t *testing.T) {
	trm, buf := newTestTerm(t)
	if err := trm.cmds.Call("source com.example.Main /tmp/Main.java", trm); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := trm.cmds.Call("sources", trm); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "com.example.Main: /tmp/Main.java") {
		t.Errorf("sources output: %q", buf.String())
	}
}

func writeNumberedSource(t *testing.T, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "Main.java")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestListCommand(t *testing.T) {
	trm, buf := newTestTerm(t)
	trm.sess.Source().Put("com.example.Main", writeNumberedSource(t, 20))

	if err := trm.cmds.Call("list com.example.Main 10", trm); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, ">line 10") {
		t.Errorf("list output missing marked line: %q", out)
	}
	if !strings.Contains(out, "line 7") || !strings.Contains(out, "line 13") {
		t.Errorf("list output missing window edges: %q", out)
	}

	if err := trm.cmds.Call("list com.example.Missing 10", trm); err == nil {
		t.Error("expected error for class without source")
	}
}

func TestListCommandHighlightsMarker(t *testing.T) {
	trm, buf := newTestTerm(t)
	trm.dumb = false
	trm.conf.SourceListLineColor = 34
	trm.sess.Source().Put("com.example.Main", writeNumberedSource(t, 20))

	if err := trm.cmds.Call("list com.example.Main 10", trm); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\033[34m>\033[0m") {
		t.Errorf("marker not highlighted: %q", buf.String())
	}
}

func TestCompleter(t *testing.T) {
	trm, _ := newTestTerm(t)
	trm.sess.Source().Put("com.example.Main", "/tmp/Main.java")
	trm.sess.Source().Put("com.example.Other", "/tmp/Other.java")

	got := trm.complete("he")
	if len(got) == 0 || got[0] != "help" {
		t.Errorf("alias completion = %v", got)
	}

	got = trm.complete("break com.example.M")
	if len(got) != 1 || got[0] != "break com.example.Main" {
		t.Errorf("class completion = %v", got)
	}

	got = trm.complete("enter com.example.")
	if len(got) != 2 {
		t.Errorf("expected both classes, got %v", got)
	}

	if got = trm.complete("detach com."); len(got) != 0 {
		t.Errorf("detach argument should not complete, got %v", got)
	}
}

func TestClassAndLine(t *testing.T) {
	trm, _ := newTestTerm(t)

	class, line, err := trm.cmds.classAndLine("com.example.Main 10")
	if err != nil || class != "com.example.Main" || line != 10 {
		t.Errorf("two-arg form: %q %d %v", class, line, err)
	}

	if _, _, err := trm.cmds.classAndLine("12"); err == nil {
		t.Error("line-only form without entered class should fail")
	}

	trm.sess.SetCurrentRef("com.example.Main")
	class, line, err = trm.cmds.classAndLine("12")
	if err != nil || class != "com.example.Main" || line != 12 {
		t.Errorf("line-only form: %q %d %v", class, line, err)
	}

	if _, _, err := trm.cmds.classAndLine("com.example.Main ten"); err == nil {
		t.Error("non-numeric line should fail")
	}
}

func TestSignalsCommand(t *testing.T) {
	trm, buf := newTestTerm(t)
	if err := trm.cmds.Call("signals", trm); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "IN TABLE") || !strings.Contains(out, "OUT TABLE") {
		t.Errorf("signals output missing tables: %q", out)
	}
}

func TestConfigListCommand(t *testing.T) {
	trm, buf := newTestTerm(t)
	trm.conf.Aliases = map[string][]string{"attach": {"att"}}
	if err := trm.cmds.Call("config -list", trm); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"context-radius", "close-on-detach", "alias attach"} {
		if !strings.Contains(out, want) {
			t.Errorf("config -list missing %q:\n%s", want, out)
		}
	}
	if err := trm.cmds.Call("config bogus", trm); err == nil {
		t.Error("expected error for unknown config argument")
	}
}

func TestCloseOnDetachCommand(t *testing.T) {
	trm, _ := newTestTerm(t)
	if err := trm.cmds.Call("close-on-detach maybe", trm); err == nil {
		t.Error("expected error for bad argument")
	}
	if err := trm.cmds.Call("close-on-detach on", trm); err != nil {
		t.Errorf("on: %v", err)
	}
	if err := trm.cmds.Call("close-on-detach off", trm); err != nil {
		t.Errorf("off: %v", err)
	}
}

func TestDetachNotAttached(t *testing.T) {
	trm, buf := newTestTerm(t)
	if err := trm.cmds.Call("detach", trm); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "not attached") {
		t.Errorf("detach output: %q", buf.String())
	}
}

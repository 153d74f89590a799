package source

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeNumberedFile(t *testing.T, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	path := filepath.Join(t.TempDir(), "Example.java")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookupWindow(t *testing.T) {
	m := New()
	m.Put("com.example.Example", writeNumberedFile(t, 20))

	out, err := m.Lookup("com.example.Example", 10, 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	want := "line 7\nline 8\nline 9\n>line 10\nline 11\nline 12\nline 13"
	if out != want {
		t.Errorf("wrong window:\ngot:\n%s\nwant:\n%s", out, want)
	}
}

func TestLookupUnregisteredClass(t *testing.T) {
	m := New()
	out, err := m.Lookup("com.example.Missing", 10, 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty result for unregistered class, got %q", out)
	}
}

func TestLookupNearFileEdges(t *testing.T) {
	m := New()
	m.Put("com.example.Example", writeNumberedFile(t, 5))

	out, err := m.Lookup("com.example.Example", 1, 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if want := ">line 1\nline 2\nline 3\nline 4"; out != want {
		t.Errorf("start of file window:\ngot:\n%s\nwant:\n%s", out, want)
	}

	out, err = m.Lookup("com.example.Example", 5, 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if want := "line 2\nline 3\nline 4\n>line 5"; out != want {
		t.Errorf("end of file window:\ngot:\n%s\nwant:\n%s", out, want)
	}

	out, err = m.Lookup("com.example.Example", 50, 3)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty result past end of file, got %q", out)
	}
}

func TestLookupMissingFile(t *testing.T) {
	m := New()
	m.Put("com.example.Gone", filepath.Join(t.TempDir(), "nope.java"))
	if _, err := m.Lookup("com.example.Gone", 1, 3); err == nil {
		t.Fatalf("expected error for unreadable registered path")
	}
}

func TestLookupCaching(t *testing.T) {
	m := New()
	path := writeNumberedFile(t, 20)
	m.Put("com.example.Example", path)

	first, err := m.Lookup("com.example.Example", 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	// Rewrite the file; the cached window must survive until the map
	// is mutated.
	if err := os.WriteFile(path, []byte("changed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	second, err := m.Lookup("com.example.Example", 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected cached window, got:\n%s", second)
	}

	m.Put("com.example.Example", path)
	third, err := m.Lookup("com.example.Example", 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	if third != "" {
		t.Errorf("expected empty window after invalidation (line 10 gone), got %q", third)
	}
}

func TestCompleteAndClear(t *testing.T) {
	m := New()
	m.Put("com.example.Foo", "/tmp/Foo.java")
	m.Put("com.example.Bar", "/tmp/Bar.java")
	m.Put("org.other.Baz", "/tmp/Baz.java")

	got := m.Complete("com.example.")
	if want := []string{"com.example.Bar", "com.example.Foo"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Complete = %v, want %v", got, want)
	}

	if got := m.Classes(); len(got) != 3 {
		t.Errorf("Classes = %v, want 3 entries", got)
	}

	m.Clear()
	if m.Len() != 0 {
		t.Errorf("expected empty map after Clear, got %d entries", m.Len())
	}
	if got := m.Complete("com."); len(got) != 0 {
		t.Errorf("expected no completions after Clear, got %v", got)
	}
}

// Package source resolves class names to source files and produces
// windows of source text around breakpoint locations.
package source

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/derekparker/trie"
	lru "github.com/hashicorp/golang-lru"
)

// cacheSize is the number of resolved context windows kept around for
// repeated hits at the same breakpoint location.
const cacheSize = 64

// Map holds the mapping from fully qualified class names to source file
// paths. It is owned by the session and cleared on detach.
type Map struct {
	mu    sync.Mutex
	paths map[string]string
	index *trie.Trie
	cache *lru.Cache
}

// New returns an empty source map.
func New() *Map {
	cache, err := lru.New(cacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Map{
		paths: make(map[string]string),
		index: trie.New(),
		cache: cache,
	}
}

// Put registers the source file path for a class.
func (m *Map) Put(className, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[className] = path
	m.index.Add(className, path)
	m.cache.Purge()
}

// PathOf returns the registered path for a class.
func (m *Map) PathOf(className string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.paths[className]
	return p, ok
}

// Classes returns all registered class names, sorted.
func (m *Map) Classes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := make([]string, 0, len(m.paths))
	for c := range m.paths {
		r = append(r, c)
	}
	sort.Strings(r)
	return r
}

// Complete returns the registered class names starting with prefix.
func (m *Map) Complete(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.index.PrefixSearch(prefix)
	sort.Strings(matches)
	return matches
}

// Len returns the number of registered classes.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// Clear removes all registered paths.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = make(map[string]string)
	m.index = trie.New()
	m.cache.Purge()
}

// Lookup returns radius lines of context around the 1-based line number
// in the source file registered for className. The target line is
// prefixed with '>'. The result is empty if no path is registered for
// the class or the line is past the end of the file; fewer lines are
// returned near the start or end of the file. A read failure on a
// registered path is an error: the caller registered it as valid.
func (m *Map) Lookup(className string, line, radius int) (string, error) {
	m.mu.Lock()
	path, ok := m.paths[className]
	if !ok {
		m.mu.Unlock()
		return "", nil
	}
	key := fmt.Sprintf("%s:%d:%d", className, line, radius)
	if cached, ok := m.cache.Get(key); ok {
		m.mu.Unlock()
		return cached.(string), nil
	}
	m.mu.Unlock()

	window, err := readWindow(path, line, radius)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.cache.Add(key, window)
	m.mu.Unlock()
	return window, nil
}

func readWindow(path string, line, radius int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not read source %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	scan := bufio.NewScanner(f)
	for i := 1; scan.Scan(); i++ {
		if i < line-radius {
			continue
		}
		text := scan.Text()
		if i == line {
			text = ">" + text
		}
		lines = append(lines, text)
		if i == line+radius {
			break
		}
	}
	if err := scan.Err(); err != nil {
		return "", fmt.Errorf("could not read source %s: %v", path, err)
	}
	return strings.Join(lines, "\n"), nil
}

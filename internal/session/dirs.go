package session

import (
	"path"
	"strings"
	"sync"
)

// directoryIndex is the ordered set of directories known to exist on
// the device. It is lazily initialized from a `list_directory` RPC;
// until then, mutations are no-ops — carried over from the original
// driver rather than eagerly initializing, which would force an extra
// round trip no caller actually needs.
type directoryIndex struct {
	mu   sync.Mutex
	dirs []string // nil until list_directory populates it
	seen map[string]bool
}

func (d *directoryIndex) setAll(dirs []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirs = append(make([]string, 0, len(dirs)), dirs...)
	d.seen = make(map[string]bool, len(dirs))
	for _, p := range d.dirs {
		d.seen[p] = true
	}
}

func (d *directoryIndex) snapshot() ([]string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dirs == nil {
		return nil, false
	}
	return append([]string(nil), d.dirs...), true
}

// addAncestors adds every ancestor directory of p that isn't already
// present. A no-op if the index hasn't been initialized yet.
func (d *directoryIndex) addAncestors(p string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dirs == nil {
		return
	}

	for _, anc := range ancestors(p) {
		if !d.seen[anc] {
			d.seen[anc] = true
			d.dirs = append(d.dirs, anc)
		}
	}
}

// prunePrefix removes every directory equal to or nested under prefix.
func (d *directoryIndex) prunePrefix(prefix string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dirs == nil {
		return
	}

	nested := strings.TrimSuffix(prefix, "/") + "/"
	kept := d.dirs[:0:0]
	for _, dir := range d.dirs {
		if dir == prefix || strings.HasPrefix(dir, nested) {
			delete(d.seen, dir)
			continue
		}
		kept = append(kept, dir)
	}
	d.dirs = kept
}

// ancestors returns every proper ancestor directory of p, root-to-leaf
// excluded, e.g. "/a/b/c" -> ["/a", "/a/b"].
func ancestors(p string) []string {
	clean := path.Clean(p)
	var out []string
	for {
		parent := path.Dir(clean)
		if parent == clean || parent == "." || parent == "/" {
			break
		}
		out = append([]string{parent}, out...)
		clean = parent
	}
	return out
}

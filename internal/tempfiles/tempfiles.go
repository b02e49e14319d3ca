package tempfiles

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Set tracks temp artifacts created for a single request so every path
// can be removed once the response is written, success or failure.
type Set struct {
	paths []string
}

// Add records a path for later removal.
func (s *Set) Add(path string) { s.paths = append(s.paths, path) }

// RemoveAll deletes every tracked path. Missing files are not an error.
func (s *Set) RemoveAll() {
	for _, p := range s.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p).Msg("temp file removal failed")
		}
	}
	s.paths = s.paths[:0]
}

// SweepDir removes files in dir whose name carries one of the given
// prefixes and whose mtime is older than maxAge. Crash leftovers only;
// live requests clean up their own artifacts.
func SweepDir(dir string, prefixes []string, maxAge time.Duration) {
	now := time.Now()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		matched := false
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) >= maxAge {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// Janitor periodically sweeps stale artifacts from the given dirs until
// stop is closed.
func Janitor(dirs []string, prefixes []string, interval, maxAge time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, d := range dirs {
				SweepDir(d, prefixes, maxAge)
			}
		}
	}
}

package asset

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/muesli/gitcha"
	"github.com/sahilm/fuzzy"
)

// Extensions are the file patterns treated as raw PCM assets.
var Extensions = []string{"*.raw", "*.pcm", "*.s16", "*.raw.zst", "*.pcm.zst", "*.s16.zst"}

// ErrNoAssets is returned when a directory holds no PCM assets.
var ErrNoAssets = errors.New("no PCM assets found")

// Find lists the PCM assets below dir, honoring .gitignore rules unless
// all is set. Paths are sorted.
func Find(dir string, all bool) ([]string, error) {
	var (
		ch  chan gitcha.SearchResult
		err error
	)
	if all {
		ch, err = gitcha.FindAllFilesExcept(dir, Extensions, nil)
	} else {
		ch, err = gitcha.FindFilesExcept(dir, Extensions, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("error finding local files: %w", err)
	}

	var paths []string
	for res := range ch {
		paths = append(paths, res.Path)
	}
	sort.Strings(paths)
	log.Debug("local file search finished", "dir", dir, "found", len(paths))
	return paths, nil
}

// Pick chooses one asset from paths. An empty query picks the first path;
// otherwise the best fuzzy match on the path relative to dir wins.
func Pick(dir string, paths []string, query string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoAssets, dir)
	}
	if query == "" {
		return paths[0], nil
	}

	names := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			rel = p
		}
		names[i] = rel
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return "", fmt.Errorf("%w matching %q in %s", ErrNoAssets, query, dir)
	}
	return paths[matches[0].Index], nil
}

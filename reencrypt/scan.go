package reencrypt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/internal/digest"
)

// WriteBaseline walks root and writes one line per regular file: the
// xxHash64 content digest in hex, two spaces, and the slash-separated
// path relative to root. Dotfiles and dot-directories are skipped, so a
// baseline stored as a dotfile inside root never lists itself. Walk order
// is lexical, which keeps baselines diffable.
func WriteBaseline(root string, w io.Writer) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		sum, err := digest.File(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(w, "%016x  %s\n", sum, filepath.ToSlash(rel))

		return err
	})
}

// ScanChanges re-hashes the tree under root and returns a Change for
// every baseline entry whose content digest moved. The returned paths are
// index-style, slash separated and rooted at /, so they line up with an
// index describing the same tree. Files created after the baseline have
// no index entry to forge against and are ignored, as are baseline
// entries no longer on disk.
func ScanChanges(root string, baseline io.Reader) ([]Change, error) {
	want, order, err := parseBaseline(baseline)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for _, rel := range order {
		full := filepath.Join(root, filepath.FromSlash(rel))

		sum, err := digest.File(full)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}

		if sum != want[rel] {
			changes = append(changes, Change{
				Path:            "/" + rel,
				ReplacementPath: full,
			})
		}
	}

	return changes, nil
}

func parseBaseline(r io.Reader) (map[string]uint64, []string, error) {
	want := make(map[string]uint64)
	var order []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		hex, rel, ok := strings.Cut(line, "  ")
		if !ok || rel == "" {
			return nil, nil, fmt.Errorf("%w: line %d", errs.ErrMalformedBaseline, lineNo)
		}

		sum, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: %v", errs.ErrMalformedBaseline, lineNo, err)
		}

		if _, dup := want[rel]; !dup {
			order = append(order, rel)
		}
		want[rel] = sum
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading baseline: %w", err)
	}

	return want, order, nil
}

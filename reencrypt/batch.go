package reencrypt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/quarterpast/partforge/errs"
)

// Change pairs a logical asset path with the file holding its new
// plaintext content.
type Change struct {
	// Path is the asset's path as recorded in the index.
	Path string

	// ReplacementPath locates the new plaintext content on the local
	// filesystem.
	ReplacementPath string
}

// Summary aggregates a batch run. Every per-file Result is retained, in
// change order.
type Summary struct {
	Results []*Result

	// Verified counts files that fully round-tripped with both checksums
	// forged and matching.
	Verified int

	// SoftFailures counts files whose bytes reached the disk but are
	// flagged: verification mismatches and skipped encrypted-checksum
	// patches.
	SoftFailures int

	// HardFailures counts files left untouched: missing index entries,
	// unreadable replacements, forge misses and write errors.
	HardFailures int
}

func (s *Summary) count(res *Result) {
	switch {
	case res.Ok():
		s.Verified++
	case res.State >= StateWritten:
		s.SoftFailures++
	default:
		s.HardFailures++
	}
}

// ProgressFunc observes batch progress after each completed file.
type ProgressFunc func(done, total int, res *Result)

type batchOptions struct {
	workers  int
	root     string
	progress ProgressFunc
}

// BatchOption configures a Batch.
type BatchOption func(*batchOptions)

// WithWorkers caps the number of files processed concurrently. Values
// under 1 keep the default of one worker per available CPU.
func WithWorkers(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithRoot resolves index paths against dir instead of using them as
// filesystem paths directly: an index path /edata/a.png with root
// /mnt/game targets /mnt/game/edata/a.png.
func WithRoot(dir string) BatchOption {
	return func(o *batchOptions) {
		o.root = dir
	}
}

// WithProgress registers a callback invoked after each file completes.
// Calls are serialized across workers.
func WithProgress(fn ProgressFunc) BatchOption {
	return func(o *batchOptions) {
		o.progress = fn
	}
}

// Batch rewrites a set of assets concurrently. Workers are independent:
// each owns a keystream from the factory and its own forge tables, and
// they share only the read-only index, so per-file work never contends.
type Batch struct {
	index *Index
	newKS func() Keystream
	opts  batchOptions
}

// NewBatch returns a Batch over idx. newKeystream is invoked once per
// worker and must yield independent generators with identical reseeding
// behavior.
func NewBatch(idx *Index, newKeystream func() Keystream, opts ...BatchOption) *Batch {
	o := batchOptions{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}

	return &Batch{index: idx, newKS: newKeystream, opts: o}
}

// Run processes every change and aggregates the results. Per-file
// failures never stop the batch; the summary reports how many files
// verified, were written but flagged, and failed outright.
func (b *Batch) Run(changes []Change) *Summary {
	results := make([]*Result, len(changes))

	workers := min(b.opts.workers, len(changes))
	jobs := make(chan int)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := NewReencryptor(b.newKS())

			for i := range jobs {
				res := b.processOne(r, changes[i])
				results[i] = res

				if b.opts.progress != nil {
					mu.Lock()
					done++
					b.opts.progress(done, len(changes), res)
					mu.Unlock()
				}
			}
		}()
	}

	for i := range changes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := &Summary{Results: results}
	for _, res := range results {
		summary.count(res)
	}

	return summary
}

func (b *Batch) processOne(r *Reencryptor, change Change) *Result {
	target := resolvePath(b.opts.root, change.Path)

	entry, ok := b.index.Lookup(change.Path)
	if !ok {
		return &Result{
			Path: target,
			Err:  fmt.Errorf("%w: %s", errs.ErrEntryNotFound, change.Path),
		}
	}

	plaintext, err := os.ReadFile(change.ReplacementPath)
	if err != nil {
		return &Result{
			Path: target,
			Err:  fmt.Errorf("reading replacement for %s: %w", change.Path, err),
		}
	}

	return r.ReencryptFile(entry, plaintext, target)
}

// resolvePath maps an index path to a filesystem path under root. With no
// root the index path is used as-is.
func resolvePath(root, path string) string {
	if root == "" {
		return filepath.FromSlash(path)
	}

	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

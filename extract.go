package sheetsql

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sheetsql/store"
)

// tableBuffer is one fully extracted sheet, ready for loading: columns
// sanitized and typed, rows in source order with the header excluded.
// baseName still awaits batch-level collision resolution.
type tableBuffer struct {
	src        sourceFile
	sheetName  string
	sheetIndex int
	baseName   string
	columns    []store.ColumnSpec
	rows       [][]cell
}

// fileResult is everything extraction produced for one source file.
// Exactly one of buffers and err is set; a file that decoded to zero
// sheets has both nil.
type fileResult struct {
	src     sourceFile
	buffers []tableBuffer
	err     error
}

// extractFiles fans the given files out over a bounded worker pool and
// returns the unordered result stream. The channel is buffered for all
// results and closed when the pool drains, so workers never block on a
// slow consumer.
func extractFiles(ctx context.Context, files []sourceFile, cfg config) <-chan fileResult {
	results := make(chan fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	go func() {
		for _, src := range files {
			g.Go(func() error {
				results <- extractOne(gctx, src, cfg)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()
	return results
}

// extractOne decodes a single file and builds its table buffers. The
// decode runs under the per-file timeout; spreadsheet decoding cannot
// be interrupted midway, so on timeout the decode goroutine is left to
// finish into its buffered channel while the file is reported failed.
func extractOne(ctx context.Context, src sourceFile, cfg config) fileResult {
	fctx := ctx
	if cfg.fileTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, cfg.fileTimeout)
		defer cancel()
	}

	type outcome struct {
		sheets []rawSheet
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		cls := newClassifier(cfg.dateLayouts)
		sheets, err := decodeSource(fctx, src, cls)
		done <- outcome{sheets: sheets, err: err}
	}()

	var sheets []rawSheet
	select {
	case out := <-done:
		if out.err != nil {
			return fileResult{src: src, err: out.err}
		}
		sheets = out.sheets
	case <-fctx.Done():
		if ctx.Err() == nil {
			return fileResult{src: src, err: fmt.Errorf("%w after %s: %s",
				ErrTimeout, cfg.fileTimeout, filepath.Base(src.path))}
		}
		return fileResult{src: src, err: ctx.Err()}
	}

	buffers := make([]tableBuffer, 0, len(sheets))
	for _, sh := range sheets {
		names := sanitizeColumns(sh.header)
		specs := make([]store.ColumnSpec, len(names))
		for j := range names {
			specs[j] = store.ColumnSpec{Name: names[j], Type: inferColumnType(sh.rows, j)}
		}
		buffers = append(buffers, tableBuffer{
			src:        src,
			sheetName:  sh.name,
			sheetIndex: sh.index,
			baseName:   tableBaseName(src.stem, sh.name),
			columns:    specs,
			rows:       sh.rows,
		})
	}
	return fileResult{src: src, buffers: buffers}
}

// resequencer restores discovery order over the unordered result
// stream, holding early arrivals until their turn.
type resequencer struct {
	results <-chan fileResult
	pending map[int]fileResult
}

func newResequencer(results <-chan fileResult) *resequencer {
	return &resequencer{results: results, pending: make(map[int]fileResult)}
}

// next returns the result for the given file index, reading the stream
// until it shows up.
func (r *resequencer) next(index int) (fileResult, bool) {
	if res, ok := r.pending[index]; ok {
		delete(r.pending, index)
		return res, true
	}
	for res := range r.results {
		if res.src.index == index {
			return res, true
		}
		r.pending[res.src.index] = res
	}
	return fileResult{}, false
}

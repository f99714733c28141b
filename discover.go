package sheetsql

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// fileKind identifies the spreadsheet formats extraction knows how to
// dispatch on.
type fileKind int

const (
	kindUnknown fileKind = iota
	kindXLSX
	kindXLS
	kindParquet
)

// Recognized format extensions.
const (
	extXLSX    = ".xlsx"
	extXLSM    = ".xlsm"
	extXLS     = ".xls"
	extParquet = ".parquet"
)

// sourceFile is one discovered input, ordered by its position in the
// directory listing.
type sourceFile struct {
	// path is the absolute path of the file.
	path string
	// index is the position in discovery order; it drives deterministic
	// resequencing of extraction results.
	index int
	// kind selects the decoder.
	kind fileKind
	// compression is the optional wrapper around the format.
	compression CompressionType
	// stem is the base name without compression and format extensions,
	// unsanitized. Table names derive from it.
	stem string
}

// classifySource inspects a file name and returns its decoder kind,
// compression wrapper, and stem. ok is false for names that are not a
// recognized spreadsheet format.
func classifySource(name string) (kind fileKind, compression CompressionType, stem string, ok bool) {
	compression, base := detectCompression(name)
	ext := strings.ToLower(filepath.Ext(base))
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	switch ext {
	case extXLSX, extXLSM:
		return kindXLSX, compression, stem, true
	case extXLS:
		return kindXLS, compression, stem, true
	case extParquet:
		return kindParquet, compression, stem, true
	default:
		return kindUnknown, compression, stem, false
	}
}

// discoverSources expands a path into the ordered list of files to
// extract. A single file is passed through as-is, leaving format
// complaints to the decoder. A directory yields its directly contained
// eligible files sorted by name; subdirectories are not entered and
// dotfiles are skipped. A missing path maps to ErrNotFound, a directory
// without eligible files to ErrEmptySource.
func discoverSources(path string) ([]sourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if !info.IsDir() {
		kind, compression, stem, _ := classifySource(filepath.Base(path))
		return []sourceFile{{
			path:        path,
			index:       0,
			kind:        kind,
			compression: compression,
			stem:        stem,
		}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var sources []sourceFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(path, name)
		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(full)
			if err != nil || target.IsDir() {
				continue
			}
		}
		kind, compression, stem, ok := classifySource(name)
		if !ok {
			continue
		}
		sources = append(sources, sourceFile{
			path:        full,
			index:       len(sources),
			kind:        kind,
			compression: compression,
			stem:        stem,
		})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}
	return sources, nil
}

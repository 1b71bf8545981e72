package matrix

import (
	"fmt"
	"os"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"github.com/zclconf/go-cty/cty/msgpack"
)

// LibraryMap records, for every new gem group in order, which library it
// came from and which gem group it had there.
type LibraryMap struct {
	LibraryIDs        []string `cty:"library_ids" json:"library_ids"`
	OriginalGemGroups []int    `cty:"original_gem_groups" json:"original_gem_groups"`
}

// GemGroups returns the number of gem groups in the map.
func (lm LibraryMap) GemGroups() int {
	return len(lm.LibraryIDs)
}

// indexedFile is the msgpack document layout. The matrix is stored in
// compressed sparse column form: the counts of barcode j are
// data[indptr[j]:indptr[j+1]] at feature rows indices[indptr[j]:indptr[j+1]].
type indexedFile struct {
	Version    int        `cty:"version"`
	Features   []Feature  `cty:"features"`
	Barcodes   []string   `cty:"barcodes"`
	Indptr     []int64    `cty:"indptr"`
	Indices    []int64    `cty:"indices"`
	Data       []int64    `cty:"data"`
	LibraryMap LibraryMap `cty:"library_map"`
}

var indexedFileType = mustImpliedType(indexedFile{})

func mustImpliedType(v any) cty.Type {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		panic(err)
	}
	return ty
}

// WriteIndexed stores m and its library map as one indexed file.
func (m *CountMatrix) WriteIndexed(path string, lm LibraryMap) error {
	m.Sort()
	f := indexedFile{
		Version:    CurrentVersion,
		Features:   m.Features,
		Barcodes:   m.Barcodes,
		Indptr:     make([]int64, len(m.Barcodes)+1),
		Indices:    make([]int64, len(m.Entries)),
		Data:       make([]int64, len(m.Entries)),
		LibraryMap: lm,
	}
	for i, e := range m.Entries {
		f.Indices[i] = int64(e.Feature)
		f.Data[i] = e.Count
		f.Indptr[e.Barcode+1]++
	}
	for j := 1; j < len(f.Indptr); j++ {
		f.Indptr[j] += f.Indptr[j-1]
	}

	val, err := gocty.ToCtyValue(f, indexedFileType)
	if err != nil {
		return fmt.Errorf("failed to encode indexed matrix: %w", err)
	}
	data, err := msgpack.Marshal(val, indexedFileType)
	if err != nil {
		return fmt.Errorf("failed to encode indexed matrix: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadIndexed loads an indexed file written by WriteIndexed.
func ReadIndexed(path string) (*CountMatrix, LibraryMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, LibraryMap{}, err
	}
	val, err := msgpack.Unmarshal(data, indexedFileType)
	if err != nil {
		return nil, LibraryMap{}, fmt.Errorf("%s is not a valid indexed matrix: %w", path, err)
	}
	var f indexedFile
	if err := gocty.FromCtyValue(val, &f); err != nil {
		return nil, LibraryMap{}, fmt.Errorf("%s is not a valid indexed matrix: %w", path, err)
	}
	if f.Version > CurrentVersion {
		return nil, LibraryMap{}, fmt.Errorf("indexed matrix format version %d is newer than supported version %d", f.Version, CurrentVersion)
	}
	if len(f.Indptr) != len(f.Barcodes)+1 || len(f.Indices) != len(f.Data) {
		return nil, LibraryMap{}, fmt.Errorf("%s: inconsistent sparse layout", path)
	}

	m := &CountMatrix{Features: f.Features, Barcodes: f.Barcodes, Entries: make([]Entry, 0, len(f.Data))}
	for j := 0; j < len(f.Barcodes); j++ {
		lo, hi := f.Indptr[j], f.Indptr[j+1]
		if lo > hi || hi > int64(len(f.Data)) {
			return nil, LibraryMap{}, fmt.Errorf("%s: inconsistent sparse layout at barcode %d", path, j)
		}
		for k := lo; k < hi; k++ {
			m.Entries = append(m.Entries, Entry{Feature: int(f.Indices[k]), Barcode: j, Count: f.Data[k]})
		}
	}
	if err := m.Validate(); err != nil {
		return nil, LibraryMap{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, f.LibraryMap, nil
}

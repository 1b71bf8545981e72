package matrix

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File names inside a MEX directory.
const (
	MatrixFile   = "matrix.mtx"
	FeaturesFile = "features.tsv"
	BarcodesFile = "barcodes.tsv"
)

const mtxHeader = "%%MatrixMarket matrix coordinate integer general"

// maxPreallocEntries bounds how much of a declared entry count is trusted
// before the entries are actually read.
const maxPreallocEntries = 1 << 16

// ReadMEX loads a matrix from a MEX directory.
func ReadMEX(dir string) (*CountMatrix, error) {
	features, err := readFeatures(filepath.Join(dir, FeaturesFile))
	if err != nil {
		return nil, err
	}
	barcodes, err := readLines(filepath.Join(dir, BarcodesFile))
	if err != nil {
		return nil, err
	}
	m := &CountMatrix{Features: features, Barcodes: barcodes}
	if err := readEntries(filepath.Join(dir, MatrixFile), m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	m.Sort()
	return m, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

func readFeatures(path string) ([]Feature, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	features := make([]Feature, len(lines))
	for i, line := range lines {
		cols := strings.Split(line, "\t")
		f := Feature{ID: cols[0], Name: cols[0], Type: DefaultFeatureType}
		if len(cols) > 1 {
			f.Name = cols[1]
		}
		if len(cols) > 2 {
			f.Type = cols[2]
		}
		features[i] = f
	}
	return features, nil
}

func readEntries(path string, m *CountMatrix) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	if !sc.Scan() {
		return fmt.Errorf("%s: empty matrix file", path)
	}
	lineNo++
	if !strings.HasPrefix(strings.TrimSpace(sc.Text()), mtxHeader) {
		return fmt.Errorf("%s: unsupported matrix header %q", path, sc.Text())
	}

	nnz := -1
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		nums, err := parseInts(line, 3)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if nnz < 0 {
			if int(nums[0]) != len(m.Features) || int(nums[1]) != len(m.Barcodes) {
				return fmt.Errorf("%s: shape %dx%d does not match %d features and %d barcodes",
					path, nums[0], nums[1], len(m.Features), len(m.Barcodes))
			}
			if nums[2] < 0 {
				return fmt.Errorf("%s:%d: entry count %d is negative", path, lineNo, nums[2])
			}
			if cells := int64(len(m.Features)) * int64(len(m.Barcodes)); nums[2] > cells {
				return fmt.Errorf("%s:%d: entry count %d exceeds the %d cells of the matrix", path, lineNo, nums[2], cells)
			}
			nnz = int(nums[2])
			m.Entries = make([]Entry, 0, min(nnz, maxPreallocEntries))
			continue
		}
		if len(m.Entries) == nnz {
			return fmt.Errorf("%s:%d: more entries than the %d declared", path, lineNo, nnz)
		}
		m.Entries = append(m.Entries, Entry{Feature: int(nums[0]) - 1, Barcode: int(nums[1]) - 1, Count: nums[2]})
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if nnz < 0 {
		return fmt.Errorf("%s: missing size line", path)
	}
	if len(m.Entries) != nnz {
		return fmt.Errorf("%s: expected %d entries, found %d", path, nnz, len(m.Entries))
	}
	return nil
}

func parseInts(line string, n int) ([]int64, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d fields, got %d", n, len(fields))
	}
	out := make([]int64, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// WriteMEX writes m into dir, creating it if needed. Entries are written in
// sorted order so the output is byte-identical for identical matrices.
func (m *CountMatrix) WriteMEX(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	m.Sort()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%%\n%d %d %d\n", mtxHeader, len(m.Features), len(m.Barcodes), len(m.Entries))
	for _, e := range m.Entries {
		fmt.Fprintf(&b, "%d %d %d\n", e.Feature+1, e.Barcode+1, e.Count)
	}
	if err := os.WriteFile(filepath.Join(dir, MatrixFile), []byte(b.String()), 0o644); err != nil {
		return err
	}

	b.Reset()
	for _, f := range m.Features {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", f.ID, f.Name, f.Type)
	}
	if err := os.WriteFile(filepath.Join(dir, FeaturesFile), []byte(b.String()), 0o644); err != nil {
		return err
	}

	b.Reset()
	for _, bc := range m.Barcodes {
		b.WriteString(bc)
		b.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, BarcodesFile), []byte(b.String()), 0o644)
}

package matrix

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultFeatureType is assumed when features.tsv has no type column.
const DefaultFeatureType = "Gene Expression"

// Feature is one row of a count matrix.
type Feature struct {
	ID   string `cty:"id"`
	Name string `cty:"name"`
	Type string `cty:"type"`
}

// Entry is one non-zero count. Indices are zero-based.
type Entry struct {
	Feature int
	Barcode int
	Count   int64
}

// CountMatrix is a sparse feature by barcode matrix of integer counts.
type CountMatrix struct {
	Features []Feature
	Barcodes []string
	Entries  []Entry
}

// Sort orders entries by barcode, then feature. Written files depend on this
// order.
func (m *CountMatrix) Sort() {
	sort.Slice(m.Entries, func(i, j int) bool {
		a, b := m.Entries[i], m.Entries[j]
		if a.Barcode != b.Barcode {
			return a.Barcode < b.Barcode
		}
		return a.Feature < b.Feature
	})
}

// Total returns the sum of all counts.
func (m *CountMatrix) Total() int64 {
	var total int64
	for _, e := range m.Entries {
		total += e.Count
	}
	return total
}

// CountsPerBarcode returns the column sums.
func (m *CountMatrix) CountsPerBarcode() []int64 {
	sums := make([]int64, len(m.Barcodes))
	for _, e := range m.Entries {
		sums[e.Barcode] += e.Count
	}
	return sums
}

// SameFeatures reports whether m and other list the same features in the
// same order. Names are display-only and are not compared.
func (m *CountMatrix) SameFeatures(other *CountMatrix) bool {
	if len(m.Features) != len(other.Features) {
		return false
	}
	for i := range m.Features {
		if m.Features[i].ID != other.Features[i].ID || m.Features[i].Type != other.Features[i].Type {
			return false
		}
	}
	return true
}

// Validate checks that every entry lies inside the matrix and is positive.
func (m *CountMatrix) Validate() error {
	for i, e := range m.Entries {
		if e.Feature < 0 || e.Feature >= len(m.Features) {
			return fmt.Errorf("entry %d: feature index %d out of range [0, %d)", i, e.Feature, len(m.Features))
		}
		if e.Barcode < 0 || e.Barcode >= len(m.Barcodes) {
			return fmt.Errorf("entry %d: barcode index %d out of range [0, %d)", i, e.Barcode, len(m.Barcodes))
		}
		if e.Count <= 0 {
			return fmt.Errorf("entry %d: count must be positive, got %d", i, e.Count)
		}
	}
	return nil
}

// SplitBarcode separates a barcode sequence from its gem group suffix.
// Barcodes without a suffix belong to gem group 1.
func SplitBarcode(bc string) (seq string, gemGroup int, err error) {
	i := strings.LastIndexByte(bc, '-')
	if i < 0 {
		return bc, 1, nil
	}
	gg, err := strconv.Atoi(bc[i+1:])
	if err != nil || gg < 1 {
		return "", 0, fmt.Errorf("barcode %q has an invalid gem group suffix", bc)
	}
	return bc[:i], gg, nil
}

// JoinBarcode appends a gem group suffix to a barcode sequence.
func JoinBarcode(seq string, gemGroup int) string {
	return seq + "-" + strconv.Itoa(gemGroup)
}

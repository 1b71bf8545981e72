package aggregate

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/specialistvlad/stagegrid/internal/matrix"
	"github.com/specialistvlad/stagegrid/modules/parse_csv"
)

// Normalization modes.
const (
	NormalizeNone   = "none"
	NormalizeMapped = "mapped"
)

// Library is one input of the aggregation with its matrix loaded.
type Library struct {
	ID     string
	Matrix *matrix.CountMatrix
}

// LoadLibraries reads the matrix of every record, in order.
func LoadLibraries(records []map[string]string) ([]Library, error) {
	libs := make([]Library, 0, len(records))
	for _, rec := range records {
		id := rec[parse_csv.ColLibraryID]
		m, err := matrix.ReadMEX(rec[parse_csv.ColMatrixDir])
		if err != nil {
			return nil, fmt.Errorf("library %q: %w", id, err)
		}
		libs = append(libs, Library{ID: id, Matrix: m})
	}
	return libs, nil
}

// Result is the merged matrix and how it was put together.
type Result struct {
	Matrix     *matrix.CountMatrix
	LibraryMap matrix.LibraryMap
	// Libraries holds one summary per input library, in input order.
	Libraries []LibrarySummary
}

// LibrarySummary describes one library's contribution to the merged matrix.
type LibrarySummary struct {
	LibraryID string `json:"library_id"`
	// GemGroups are the new gem groups assigned to this library.
	GemGroups []int `json:"gem_groups"`
	Barcodes  int   `json:"barcodes"`
	RawCounts int64 `json:"raw_counts"`
	Counts    int64 `json:"counts"`
}

// Merge concatenates the libraries' barcodes into one matrix. Every original
// gem group of every library gets a new gem group, numbered from 1 in library
// order, and barcodes are re-suffixed with it. All libraries must share the
// same feature list.
func Merge(libs []Library, mode string) (*Result, error) {
	if len(libs) == 0 {
		return nil, fmt.Errorf("nothing to aggregate")
	}
	if mode != NormalizeNone && mode != NormalizeMapped {
		return nil, fmt.Errorf("unknown normalization mode %q: expected %q or %q", mode, NormalizeNone, NormalizeMapped)
	}

	first := libs[0].Matrix
	for _, lib := range libs[1:] {
		if !lib.Matrix.SameFeatures(first) {
			return nil, fmt.Errorf("library %q has a different feature list than library %q", lib.ID, libs[0].ID)
		}
	}

	scales := scaleFactors(libs, mode)
	res := &Result{Matrix: &matrix.CountMatrix{Features: first.Features}}
	nextGemGroup := 1

	for li, lib := range libs {
		sum := LibrarySummary{LibraryID: lib.ID, Barcodes: len(lib.Matrix.Barcodes), RawCounts: lib.Matrix.Total()}

		newBarcodes, groups, err := regroup(lib.Matrix.Barcodes, nextGemGroup)
		if err != nil {
			return nil, fmt.Errorf("library %q: %w", lib.ID, err)
		}
		for _, g := range groups {
			res.LibraryMap.LibraryIDs = append(res.LibraryMap.LibraryIDs, lib.ID)
			res.LibraryMap.OriginalGemGroups = append(res.LibraryMap.OriginalGemGroups, g)
			sum.GemGroups = append(sum.GemGroups, nextGemGroup)
			nextGemGroup++
		}

		offset := len(res.Matrix.Barcodes)
		res.Matrix.Barcodes = append(res.Matrix.Barcodes, newBarcodes...)
		for _, e := range lib.Matrix.Entries {
			count := scales[li].apply(e.Count)
			if count == 0 {
				continue
			}
			res.Matrix.Entries = append(res.Matrix.Entries, matrix.Entry{Feature: e.Feature, Barcode: offset + e.Barcode, Count: count})
			sum.Counts += count
		}
		res.Libraries = append(res.Libraries, sum)
	}

	res.Matrix.Sort()
	return res, nil
}

// regroup re-suffixes barcodes. Original gem groups are assigned new ones in
// ascending order starting at first. It returns the original groups in the
// order they were assigned.
func regroup(barcodes []string, first int) ([]string, []int, error) {
	seqs := make([]string, len(barcodes))
	orig := make([]int, len(barcodes))
	distinct := make(map[int]struct{})
	for i, bc := range barcodes {
		seq, gg, err := matrix.SplitBarcode(bc)
		if err != nil {
			return nil, nil, err
		}
		seqs[i], orig[i] = seq, gg
		distinct[gg] = struct{}{}
	}

	groups := make([]int, 0, len(distinct))
	for gg := range distinct {
		groups = append(groups, gg)
	}
	sort.Ints(groups)
	assigned := make(map[int]int, len(groups))
	for i, gg := range groups {
		assigned[gg] = first + i
	}

	out := make([]string, len(barcodes))
	for i := range barcodes {
		out[i] = matrix.JoinBarcode(seqs[i], assigned[orig[i]])
	}
	return out, groups, nil
}

// scale multiplies a count by num/den and rounds down.
type scale struct {
	num, den *big.Int
}

func (s scale) apply(count int64) int64 {
	if s.num == nil {
		return count
	}
	v := new(big.Int).Mul(big.NewInt(count), s.num)
	return v.Quo(v, s.den).Int64()
}

// scaleFactors returns the identity for NormalizeNone. For NormalizeMapped,
// every library is scaled down to the smallest mean counts per barcode
// among the libraries that have counts.
func scaleFactors(libs []Library, mode string) []scale {
	scales := make([]scale, len(libs))
	if mode != NormalizeMapped {
		return scales
	}

	var target *big.Rat
	means := make([]*big.Rat, len(libs))
	for i, lib := range libs {
		total, bcs := lib.Matrix.Total(), int64(len(lib.Matrix.Barcodes))
		if total == 0 || bcs == 0 {
			continue
		}
		means[i] = big.NewRat(total, bcs)
		if target == nil || means[i].Cmp(target) < 0 {
			target = means[i]
		}
	}

	for i, mean := range means {
		if mean == nil || mean.Cmp(target) == 0 {
			continue
		}
		ratio := new(big.Rat).Quo(target, mean)
		scales[i] = scale{num: ratio.Num(), den: ratio.Denom()}
	}
	return scales
}

// Package matrix reads and writes the sparse feature-barcode count matrices
// the aggregation stages work on.
//
// Three on-disk forms are supported:
//
//   - MEX: a directory holding matrix.mtx (Matrix Market coordinate format),
//     features.tsv and barcodes.tsv.
//   - The indexed file: one msgpack document holding the matrix in
//     compressed sparse column form together with the library map.
//   - metadata.json next to a MEX directory, carrying the format version.
package matrix

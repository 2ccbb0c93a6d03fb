// Package doctypes holds the dependency-free vocabulary for document files:
// extension normalization, the default extension allow-list and skip
// patterns, coarse kinds and MIME types.
//
// Extensions are always lower case with a leading dot:
//
//	doctypes.NormalizeExtension("PDF") // ".pdf"
//	doctypes.KindFor(".xlsx")          // doctypes.KindSpreadsheet
package doctypes

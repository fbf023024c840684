// Package loader turns the files of a data source directory into documents
// and splits documents into overlapping fixed-size chunks.
//
// # Supported formats
//
// Files are matched by extension, case-insensitively:
//
//	.md .txt         read as UTF-8 text
//	.html .htm       converted to markdown, <title> kept as metadata
//	.pdf             page text in page order
//	.xlsx            every sheet rendered as a heading followed by tab-separated rows
//
// Anything else is skipped without a warning. A file that matches but cannot be
// extracted produces a *core.LoadError in Result.Warnings and is left out of
// Result.Documents; the remaining files are still loaded.
//
// # Chunking
//
// Splitter cuts text on rune count only. With the defaults a chunk holds at
// most 1000 characters and consecutive chunks share 100, so chunk starts
// advance by 900.
package loader

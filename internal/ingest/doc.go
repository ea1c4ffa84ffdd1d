// Package ingest turns uploaded invoice files into a normalized Result.
//
// # Pipeline
//
// A file goes through three steps:
//
//  1. Encoding: text is decoded with an ordered ladder (UTF-8, Latin-1,
//     CP1252). The first decoder that succeeds wins.
//  2. Classification: when the caller did not pin a format, the first 1024
//     bytes are sniffed to choose XML, CSV/Excel or delimited text, falling
//     back to the file extension.
//  3. Parsing: the parser registered for the format builds a Result with a
//     record count, structural errors and format-specific detail.
//
// # Result Invariant
//
// Result.Success is true exactly when Result.StructuralErrors is empty. Every
// parser returns through the same finishing step, so the invariant holds for
// parser failures, recovered panics and unknown formats alike. Advisory
// diagnostics go to Result.Warnings and never affect Success.
//
// # Registering Parsers
//
// Parsers register themselves by format in init functions:
//
//	func init() {
//	    Register(FormatXML, ParserFunc(parseXML))
//	}
//
// Parse looks the parser up, converts returned errors and panics into a
// single "processing error" structural error, and reports unknown formats as
// "format not recognized".
package ingest

// Package core drives invoice batches from upload to a terminal state.
//
// # Overview
//
// The Service accepts one uploaded file per call, records a batch for it and
// runs the ingestion pipeline synchronously:
//
//	spool to temp file -> create batch (Received) -> Processing
//	  -> classify (auto_detect only) -> parse -> simulate findings
//	  -> Completed | CompletedWithWarnings | Error
//
// The temp file is removed on every path. Persistence goes through the Store
// interface; the Service never holds batch state in memory between calls.
//
// # Two Failure Channels
//
// Problems with the request itself (no file, unknown format hint, file over
// the size limit, no upload slot) are returned as errors before any batch
// exists. Problems with the file content never fail the call: they are
// recorded as findings and the returned UploadResult describes a batch in
// the Error state. Unexpected failures after the batch exists, including
// panics, also end in Error with a single finding and an ERROR log line.
//
// # State Decision
//
// After a successful parse with records, the batch is Completed when the
// simulator reports no findings, CompletedWithWarnings when the finding count
// is at most WarningThreshold of the record count, and Error otherwise. A
// successful parse with no records is Completed. Only Completed and
// CompletedWithWarnings batches can be downloaded as templates.
//
// # Exceptions
//
// Findings that need DIAN follow-up create exceptions in the Pending state.
// ApplyExceptionAction moves them to Corrected, In_Manual_Creation, Ignored
// or Retrying. Retrying can be acted on again; the other three are final.
package core

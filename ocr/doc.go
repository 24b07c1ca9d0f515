// Package ocr defines the records exchanged with the OCR-to-PDF conversion
// service: per-file results, per-image region details and aggregate
// statistics. The service owns these records; clients only read them.
//
// Decoding is deliberately lenient. A record with a missing or mistyped field
// still decodes: numeric fields become Unavailable, a missing status stays
// empty and a mistyped one becomes StatusFailed. An array element that is not
// an object decodes as a defaulted record, so one malformed entry never aborts
// reconciliation of a whole snapshot.
package ocr

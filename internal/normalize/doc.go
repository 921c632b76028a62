// Package normalize turns raw FIPE API payloads into model values.
//
// Everything here is pure: no I/O, no logging. Malformed input never fails a
// whole record; prices fall back to zero and missing identifiers to the
// leaf being fetched, then to the sentinels NotAvailable, UnknownType and
// UnknownFuel.
package normalize

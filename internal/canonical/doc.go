// Package canonical produces RFC 8785 canonical JSON and content hashes for
// query requests.
//
// Two requests that differ only in key order, whitespace or Unicode
// normalization form produce the same bytes and therefore the same hash. The
// query history uses the hash to recognise repeated requests.
//
// Key design constraints:
//   - Object keys sorted by UTF-16 code units
//   - Strings NFC normalized, no HTML escaping
//   - Integers only; fractional numbers are rejected
package canonical

// Package digest computes git blob object ids for local files. A blob id is
// the SHA-1 of "blob <size>\x00" followed by the raw bytes, which is the same
// identifier a git host reports for a file's current content, so a freshly
// downloaded cache file can be compared against the remote listing directly.
package digest

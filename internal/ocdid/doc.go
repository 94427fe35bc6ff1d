// Package ocdid resolves OCD-ID identifier sets for validation rules. A
// Provider answers "give me the identifiers for dataset X": it honours a
// local override file, otherwise consults the freshness policy, the disk
// cache and the remote repository, downloading and hash-verifying a new copy
// only when the cached one is missing or superseded upstream.
package ocdid

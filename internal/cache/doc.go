// Package cache defines the disk-backed store that keeps downloaded reference
// tables under <root>/<name>.csv. Downloads land in a staging file
// (<name>.tmp) first and are promoted onto the cache path only after the
// caller has verified them, so a crash or a failed transfer never replaces a
// good copy. The file's modification time is the freshness stamp: it records
// when the content was last downloaded or confirmed current, not when it was
// committed upstream.
package cache

// Package remote reads metadata and content from the source-controlled
// repository that publishes the identifier tables. It never writes to the
// repository: the only queries are the newest commit touching a path, the
// blob id of a file (taken from its directory listing) and the raw file
// content. Every transport or API failure is reported as ErrUnavailable so
// callers cannot mistake an outage for "nothing changed".
package remote

package ocdid

import (
	"errors"
	"fmt"

	"github.com/ocdid-hub/ocdid-hub/internal/cache"
	"github.com/ocdid-hub/ocdid-hub/internal/dataset"
	"github.com/ocdid-hub/ocdid-hub/internal/remote"
)

// Error kinds surfaced to callers. Match them with errors.Is.
var (
	ErrRemoteUnavailable = remote.ErrUnavailable
	ErrRemoteNotFound    = remote.ErrNotFound
	ErrMalformedDataset  = dataset.ErrMalformed
	ErrCacheWrite        = cache.ErrWriteFailed
	ErrIntegrityMismatch = errors.New("downloaded content does not match remote blob id")
)

// IntegrityError 描述一次校验失败。它是警告级别：Identifiers 会同时返回解析结果，
// 由调用方决定是否信任。
type IntegrityError struct {
	Name     string
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	expected := e.Expected
	if expected == "" {
		expected = "<no remote blob>"
	}
	return fmt.Sprintf("%s: %v (expected %s, got %s, content kept at %s)", e.Name, ErrIntegrityMismatch, expected, e.Actual, e.Path)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityMismatch
}

// IsWarning reports whether err accompanies a usable, unverified Result.
func IsWarning(err error) bool {
	return errors.Is(err, ErrIntegrityMismatch)
}

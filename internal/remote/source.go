package remote

import (
	"context"
	"errors"
	"io"
	"time"
)

// Metadata 是新鲜度判断与校验所需的两个只读查询。
type Metadata interface {
	// LatestCommitDate 返回最近一次触及 path 的提交时间。
	LatestCommitDate(ctx context.Context, path string) (time.Time, error)
	// BlobID 返回 path 当前版本的 blob id；目录中没有同名条目时返回 ok=false 且 err=nil。
	BlobID(ctx context.Context, path string) (id string, ok bool, err error)
}

// Source adds raw content download to Metadata.
type Source interface {
	Metadata
	Download(ctx context.Context, path string) (io.ReadCloser, error)
}

var (
	// ErrUnavailable 表示网络或远端 API 失败，必须向上传播。
	ErrUnavailable = errors.New("remote repository unavailable")
	// ErrNoHistory 表示远端没有任何触及该路径的提交。
	ErrNoHistory = errors.New("no commits found for path")
	// ErrNotFound 表示下载目标不在目录列表中。
	ErrNotFound = errors.New("remote file not found")
)

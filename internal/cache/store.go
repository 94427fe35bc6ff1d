package cache

import (
	"context"
	"errors"
	"io"
	"time"
)

// Store 负责管理参考数据文件的磁盘缓存。磁盘布局遵循：
//
//	<root>/<name>.csv    # 已验证（或已确认新鲜）的正文
//	<root>/<name>.tmp    # 下载暂存文件，验证通过后 rename 为 .csv
//
// 条目的 ModTime 由文件系统提供，作为新鲜度时间戳。
type Store interface {
	// Root 返回缓存根目录的绝对路径。
	Root() string

	// Path 返回 name 对应的 .csv 绝对路径，拒绝逃逸出根目录的名称。
	Path(name string) (string, error)

	// Stat 返回条目信息；不存在（或为目录）时返回 ErrNotFound。
	Stat(ctx context.Context, name string) (Entry, error)

	// Open 返回可流式读取的缓存条目。若不存在则返回 ErrNotFound。
	Open(ctx context.Context, name string) (*ReadResult, error)

	// Stage 将下载内容写入 <name>.tmp。实现需通过临时文件 + rename 保证写入原子性，
	// 并在失败时清理临时文件。
	Stage(ctx context.Context, name string, body io.Reader) (*Staged, error)

	// Promote 将暂存文件 rename 到正式路径，并把 ModTime 设置为 modTime。
	Promote(ctx context.Context, staged *Staged, modTime time.Time) (*Entry, error)

	// Discard 删除暂存文件，用于下载失败后的清理。
	Discard(staged *Staged) error

	// Touch 只更新条目的 ModTime，不改动内容。
	Touch(ctx context.Context, name string, modTime time.Time) error

	// Lock 串行化同一 name 的刷新流程，返回解锁函数。
	Lock(name string) func()
}

// Entry 表示一个缓存条目，包含绝对文件路径及文件信息。
type Entry struct {
	Name      string    `json:"name"`
	FilePath  string    `json:"file_path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// Staged 描述一个已完整写入但尚未验证的下载文件。
type Staged struct {
	Name      string
	FilePath  string
	SizeBytes int64
}

// ReadResult 组合 Entry 与正文 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

var (
	// ErrNotFound 表示缓存不存在。
	ErrNotFound = errors.New("cache entry not found")
	// ErrWriteFailed 包装所有本地写入失败（下载落盘、rename、touch）。
	ErrWriteFailed = errors.New("cache write failed")
	// ErrInvalidName 表示条目名称为空或包含路径成分。
	ErrInvalidName = errors.New("invalid cache entry name")
)

package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ChunkSize 是每次读取并送入哈希的字节数，避免一次性载入大文件。
const ChunkSize = 64 * 1024

// ErrShortRead 表示实际读取的字节数少于声明的大小（文件在读取期间被截断）。
var ErrShortRead = errors.New("content shorter than declared size")

// BlobSHA 计算 path 指向文件的 git blob id（十六进制）。
func BlobSHA(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return BlobSHAReader(f, info.Size())
}

// BlobSHAReader 以 ChunkSize 分块读取 r，size 必须等于 r 的总长度。
func BlobSHAReader(r io.Reader, size int64) (string, error) {
	h := sha1.New()
	h.Write(header(size))

	buf := make([]byte, ChunkSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	if total != size {
		return "", fmt.Errorf("%w: read %d of %d bytes", ErrShortRead, total, size)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BlobSHABytes is a convenience for in-memory content.
func BlobSHABytes(b []byte) string {
	h := sha1.New()
	h.Write(header(int64(len(b))))
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

func header(size int64) []byte {
	return []byte("blob " + strconv.FormatInt(size, 10) + "\x00")
}

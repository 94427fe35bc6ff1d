package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformed 表示文件无法解析为标识符表（不可读、为空或缺少表头）。
var ErrMalformed = errors.New("malformed identifier dataset")

const utf8BOM = "\ufeff"

// Load 打开 path 并解析为 IdentifierSet。
func Load(path string) (IdentifierSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	defer f.Close()

	set, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse 读取带表头的 CSV，取每个数据行的第一列作为标识符；空标识符会被跳过。
func Parse(r io.Reader) (IdentifierSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if strings.TrimSpace(strings.TrimPrefix(header[0], utf8BOM)) == "" {
		return nil, fmt.Errorf("%w: empty first header column", ErrMalformed)
	}

	set := make(IdentifierSet)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		id := strings.TrimSpace(record[0])
		if id == "" {
			continue
		}
		set.Add(id)
	}
	return set, nil
}

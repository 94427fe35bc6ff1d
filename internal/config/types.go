package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"1h" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级行为：日志、缓存目录、新鲜度阈值与查询服务端口。
type GlobalConfig struct {
	LogLevel       string   `mapstructure:"LogLevel"`
	LogFormat      string   `mapstructure:"LogFormat"`
	LogFilePath    string   `mapstructure:"LogFilePath"`
	LogMaxSize     int      `mapstructure:"LogMaxSize"`
	LogMaxBackups  int      `mapstructure:"LogMaxBackups"`
	LogCompress    bool     `mapstructure:"LogCompress"`
	CacheDir       string   `mapstructure:"CacheDir"`
	StaleThreshold Duration `mapstructure:"StaleThreshold"`
	RemoteTimeout  Duration `mapstructure:"RemoteTimeout"`
	ListenPort     int      `mapstructure:"ListenPort"`
}

// RemoteConfig 指向发布标识符表的 GitHub 仓库。
type RemoteConfig struct {
	APIBaseURL string `mapstructure:"APIBaseURL"`
	Owner      string `mapstructure:"Owner"`
	Repo       string `mapstructure:"Repo"`
	Ref        string `mapstructure:"Ref"`
	Directory  string `mapstructure:"Directory"`
	Token      string `mapstructure:"Token"`
}

// DatasetConfig 声明一个已知数据集；LocalFile 非空时作为 override 使用。
type DatasetConfig struct {
	Name      string `mapstructure:"Name"`
	LocalFile string `mapstructure:"LocalFile"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global   GlobalConfig    `mapstructure:",squash"`
	Remote   RemoteConfig    `mapstructure:"Remote"`
	Datasets []DatasetConfig `mapstructure:"Dataset"`
}

// Dataset 按名称查找数据集配置。
func (c *Config) Dataset(name string) (DatasetConfig, bool) {
	for _, ds := range c.Datasets {
		if ds.Name == name {
			return ds, true
		}
	}
	return DatasetConfig{}, false
}

// Override 返回数据集配置的 LocalFile，未配置时为空。
func (c *Config) Override(name string) string {
	ds, _ := c.Dataset(name)
	return ds.LocalFile
}

// HasToken 表示是否配置了 GitHub 访问令牌。
func (r RemoteConfig) HasToken() bool {
	return r.Token != ""
}

// AuthMode 输出 `token` 或 `anonymous`，供日志字段使用（不输出令牌本身）。
func (r RemoteConfig) AuthMode() string {
	if r.HasToken() {
		return "token"
	}
	return "anonymous"
}

// Slug 返回 owner/repo 形式的仓库标识。
func (r RemoteConfig) Slug() string {
	return r.Owner + "/" + r.Repo
}

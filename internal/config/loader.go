package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 OCDID_STALETHRESHOLD、OCDID_REMOTE_TOKEN。
const EnvPrefix = "OCDID"

// Load 读取并解析 TOML 配置文件，同时注入默认值、环境变量覆盖与校验逻辑。
// path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyRemoteDefaults(&cfg.Remote)
	for i := range cfg.Datasets {
		applyDatasetDefaults(&cfg.Datasets[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Global.CacheDir != "" {
		absCache, err := filepath.Abs(cfg.Global.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("无法解析缓存目录: %w", err)
		}
		cfg.Global.CacheDir = absCache
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CacheDir", "")
	v.SetDefault("StaleThreshold", "1h")
	v.SetDefault("RemoteTimeout", "30s")
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("Remote.APIBaseURL", "https://api.github.com/")
	v.SetDefault("Remote.Owner", "opencivicdata")
	v.SetDefault("Remote.Repo", "ocd-division-ids")
	v.SetDefault("Remote.Ref", "")
	v.SetDefault("Remote.Directory", "identifiers")
	v.SetDefault("Remote.Token", "")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 令牌同时接受通用的 GITHUB_TOKEN。
	_ = v.BindEnv("Remote.Token", EnvPrefix+"_REMOTE_TOKEN", "GITHUB_TOKEN")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	if g.StaleThreshold.DurationValue() == 0 {
		g.StaleThreshold = Duration(time.Hour)
	}
	if g.RemoteTimeout.DurationValue() == 0 {
		g.RemoteTimeout = Duration(30 * time.Second)
	}
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
}

func applyRemoteDefaults(r *RemoteConfig) {
	r.Owner = strings.TrimSpace(r.Owner)
	r.Repo = strings.TrimSpace(r.Repo)
	r.Directory = strings.Trim(strings.TrimSpace(r.Directory), "/")
	if r.Directory == "" {
		r.Directory = "identifiers"
	}
}

func applyDatasetDefaults(d *DatasetConfig) {
	d.Name = strings.ToLower(strings.TrimSpace(d.Name))
	d.LocalFile = strings.TrimSpace(d.LocalFile)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

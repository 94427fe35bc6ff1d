package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ocdid-hub/ocdid-hub/internal/cache"
)

var supportedLogFormats = map[string]struct{}{
	"json": {},
	"text": {},
}

// Validate 针对语义级别做进一步校验，防止非法配置进入运行期。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StaleThreshold.DurationValue() <= 0 {
		return newFieldError("Global.StaleThreshold", "必须大于 0")
	}
	if g.RemoteTimeout.DurationValue() <= 0 {
		return newFieldError("Global.RemoteTimeout", "必须大于 0")
	}
	if g.LogMaxSize < 0 || g.LogMaxBackups < 0 {
		return newFieldError("Global.LogMaxSize/LogMaxBackups", "不能为负数")
	}
	if format := strings.ToLower(strings.TrimSpace(g.LogFormat)); format != "" {
		if _, ok := supportedLogFormats[format]; !ok {
			return newFieldError("Global.LogFormat", "仅支持 json/text")
		}
	}

	r := c.Remote
	if r.Owner == "" {
		return newFieldError("Remote.Owner", "不能为空")
	}
	if r.Repo == "" {
		return newFieldError("Remote.Repo", "不能为空")
	}
	if strings.Contains(r.Directory, "..") {
		return newFieldError("Remote.Directory", "不允许包含 ..")
	}
	if err := validateBaseURL(r.APIBaseURL); err != nil {
		return fmt.Errorf("Remote.APIBaseURL: %w", err)
	}

	seenNames := map[string]struct{}{}
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if ds.Name == "" {
			return newFieldError("Dataset[].Name", "不能为空")
		}
		if err := cache.ValidateName(ds.Name); err != nil {
			return newFieldError(datasetField(ds.Name, "Name"), err.Error())
		}
		if _, exists := seenNames[ds.Name]; exists {
			return newFieldError(datasetField(ds.Name, "Name"), "重复")
		}
		seenNames[ds.Name] = struct{}{}
	}

	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("缺少 API 地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}

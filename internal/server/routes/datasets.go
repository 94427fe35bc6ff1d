package routes

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/ocdid-hub/ocdid-hub/internal/cache"
	"github.com/ocdid-hub/ocdid-hub/internal/config"
	"github.com/ocdid-hub/ocdid-hub/internal/ocdid"
	"github.com/ocdid-hub/ocdid-hub/internal/server"
)

// RegisterDatasetRoutes 暴露数据集查询接口：
//
//	GET /-/datasets                 已配置的数据集及其 override
//	GET /v1/datasets/:name          数据集摘要（来源、校验状态、数量）
//	GET /v1/datasets/:name/ids?id=  判断标识符是否存在
func RegisterDatasetRoutes(app *fiber.App, resolver server.Resolver, datasets []config.DatasetConfig) {
	if app == nil || resolver == nil {
		return
	}
	overrides := make(map[string]string, len(datasets))
	for _, ds := range datasets {
		overrides[ds.Name] = ds.LocalFile
	}

	app.Get("/-/datasets", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"datasets": encodeDatasets(datasets)})
	})

	app.Get("/v1/datasets/:name", func(c fiber.Ctx) error {
		result, warning, ok, err := resolve(c, resolver, overrides)
		if !ok {
			return err
		}
		return c.JSON(datasetPayload{
			Name:     result.Name,
			Source:   string(result.Source),
			Verified: result.Verified,
			Count:    result.Set.Len(),
			Action:   string(result.Decision.Action),
			Reason:   result.Decision.Reason,
			Warning:  warning,
		})
	})

	app.Get("/v1/datasets/:name/ids", func(c fiber.Ctx) error {
		id := strings.TrimSpace(c.Query("id"))
		if id == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id_required"})
		}
		result, warning, ok, err := resolve(c, resolver, overrides)
		if !ok {
			return err
		}
		return c.JSON(lookupPayload{
			Dataset:  result.Name,
			ID:       id,
			Present:  result.Set.Contains(id),
			Verified: result.Verified,
			Warning:  warning,
		})
	})
}

type datasetPayload struct {
	Name     string `json:"name"`
	Source   string `json:"source"`
	Verified bool   `json:"verified"`
	Count    int    `json:"count"`
	Action   string `json:"action,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

type lookupPayload struct {
	Dataset  string `json:"dataset"`
	ID       string `json:"id"`
	Present  bool   `json:"present"`
	Verified bool   `json:"verified"`
	Warning  string `json:"warning,omitempty"`
}

type datasetConfigPayload struct {
	Name      string `json:"name"`
	LocalFile string `json:"local_file,omitempty"`
}

// resolve 调用 Resolver；校验告警转为 warning 字符串。ok=false 时错误响应已写出，
// 返回的 error 仅为写响应本身的错误。
func resolve(c fiber.Ctx, resolver server.Resolver, overrides map[string]string) (*ocdid.Result, string, bool, error) {
	name := strings.ToLower(strings.TrimSpace(c.Params("name")))
	if err := cache.ValidateName(name); err != nil {
		return nil, "", false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_dataset_name"})
	}

	ref := ocdid.ReferenceFile{Name: name, Override: overrides[name]}
	result, err := resolver.Identifiers(server.RequestContext(c), ref)
	if err != nil && !(ocdid.IsWarning(err) && result != nil) {
		status, code := errorStatus(err)
		return nil, "", false, c.Status(status).JSON(fiber.Map{"error": code, "detail": err.Error()})
	}
	warning := ""
	if err != nil {
		warning = err.Error()
	}
	return result, warning, true, nil
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ocdid.ErrMalformedDataset):
		return fiber.StatusUnprocessableEntity, "malformed_dataset"
	case errors.Is(err, ocdid.ErrRemoteNotFound):
		return fiber.StatusNotFound, "dataset_not_found"
	case errors.Is(err, ocdid.ErrRemoteUnavailable):
		return fiber.StatusBadGateway, "remote_unavailable"
	case errors.Is(err, ocdid.ErrCacheWrite):
		return fiber.StatusInternalServerError, "cache_write_failed"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}

func encodeDatasets(datasets []config.DatasetConfig) []datasetConfigPayload {
	if len(datasets) == 0 {
		return nil
	}
	result := make([]datasetConfigPayload, 0, len(datasets))
	for _, ds := range datasets {
		result = append(result, datasetConfigPayload{Name: ds.Name, LocalFile: ds.LocalFile})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

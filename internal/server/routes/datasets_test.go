package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocdid-hub/ocdid-hub/internal/config"
	"github.com/ocdid-hub/ocdid-hub/internal/dataset"
	"github.com/ocdid-hub/ocdid-hub/internal/freshness"
	"github.com/ocdid-hub/ocdid-hub/internal/ocdid"
	"github.com/ocdid-hub/ocdid-hub/internal/server"
)

type recordingResolver struct {
	refs   []ocdid.ReferenceFile
	result *ocdid.Result
	err    error
}

func (r *recordingResolver) Identifiers(_ context.Context, ref ocdid.ReferenceFile) (*ocdid.Result, error) {
	r.refs = append(r.refs, ref)
	return r.result, r.err
}

func newTestApp(t *testing.T, resolver server.Resolver, datasets []config.DatasetConfig) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app, err := server.NewApp(server.AppOptions{Logger: logger, Resolver: resolver, ListenPort: 5000})
	require.NoError(t, err)
	RegisterDatasetRoutes(app, resolver, datasets)
	return app
}

func sampleResult(verified bool) *ocdid.Result {
	return &ocdid.Result{
		Name:     "country-ar",
		Set:      dataset.NewIdentifierSet("ocd-division/country:ar", "ocd-division/country:ar/province:cordoba"),
		Source:   ocdid.SourceCache,
		Verified: verified,
		Decision: freshness.Decision{Action: freshness.ActionReuse, Reason: "fresh"},
	}
}

func getJSON(t *testing.T, app *fiber.App, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	payload := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestDatasetSummary(t *testing.T) {
	resolver := &recordingResolver{result: sampleResult(true)}
	app := newTestApp(t, resolver, nil)

	status, body := getJSON(t, app, "/v1/datasets/country-ar")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "country-ar", body["name"])
	assert.Equal(t, "cache", body["source"])
	assert.Equal(t, true, body["verified"])
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "reuse", body["action"])
}

func TestDatasetLookupPassesOverride(t *testing.T) {
	resolver := &recordingResolver{result: sampleResult(true)}
	app := newTestApp(t, resolver, []config.DatasetConfig{{Name: "country-ar", LocalFile: "/srv/ar.csv"}})

	status, body := getJSON(t, app, "/v1/datasets/country-ar/ids?id="+url.QueryEscape("ocd-division/country:ar"))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["present"])

	status, body = getJSON(t, app, "/v1/datasets/country-ar/ids?id="+url.QueryEscape("ocd-division/country:zz"))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["present"])

	require.Len(t, resolver.refs, 2)
	assert.Equal(t, "/srv/ar.csv", resolver.refs[0].Override)
}

func TestDatasetLookupRequiresID(t *testing.T) {
	app := newTestApp(t, &recordingResolver{result: sampleResult(true)}, nil)

	status, body := getJSON(t, app, "/v1/datasets/country-ar/ids")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "id_required", body["error"])
}

func TestDatasetRejectsInvalidName(t *testing.T) {
	resolver := &recordingResolver{result: sampleResult(true)}
	app := newTestApp(t, resolver, nil)

	status, body := getJSON(t, app, "/v1/datasets/..country")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_dataset_name", body["error"])
	assert.Empty(t, resolver.refs)
}

func TestDatasetIntegrityWarningStillAnswers(t *testing.T) {
	resolver := &recordingResolver{
		result: sampleResult(false),
		err:    &ocdid.IntegrityError{Name: "country-ar", Path: "/tmp/country-ar.tmp", Actual: "abc"},
	}
	app := newTestApp(t, resolver, nil)

	status, body := getJSON(t, app, "/v1/datasets/country-ar")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["verified"])
	assert.Contains(t, body["warning"], "does not match")
}

func TestDatasetErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("check: %w", ocdid.ErrRemoteUnavailable), fiber.StatusBadGateway, "remote_unavailable"},
		{fmt.Errorf("load: %w", ocdid.ErrMalformedDataset), fiber.StatusUnprocessableEntity, "malformed_dataset"},
		{fmt.Errorf("stage: %w", ocdid.ErrCacheWrite), fiber.StatusInternalServerError, "cache_write_failed"},
		{fmt.Errorf("download: %w", ocdid.ErrRemoteNotFound), fiber.StatusNotFound, "dataset_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			app := newTestApp(t, &recordingResolver{err: tc.err}, nil)
			status, body := getJSON(t, app, "/v1/datasets/country-ar")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body["error"])
		})
	}
}

func TestListConfiguredDatasets(t *testing.T) {
	app := newTestApp(t, &recordingResolver{}, []config.DatasetConfig{
		{Name: "country-us"},
		{Name: "country-ar", LocalFile: "/srv/ar.csv"},
	})

	status, body := getJSON(t, app, "/-/datasets")
	assert.Equal(t, fiber.StatusOK, status)
	items, ok := body["datasets"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "country-ar", first["name"])
	assert.Equal(t, "/srv/ar.csv", first["local_file"])
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strapi/strapi-sub004/internal/application/releases"
	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/domain/release"
)

const cliSchemas = `contentTypes:
  - uid: api::category.category
    kind: collectionType
    draftAndPublish: true
    attributes:
      - name: name
        type: string
        required: true
  - uid: api::article.article
    kind: collectionType
    draftAndPublish: true
    attributes:
      - name: title
        type: string
        required: true
      - name: category
        type: relation
        relation: manyToOne
        target: api::category.category
`

func setupWorkspace(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas.yaml"), []byte(cliSchemas), 0o644))
	cfg := "storage:\n  path: data/releases.json\nschemas:\n  path: schemas.yaml\nlog:\n  level: error\n" + extra
	path := filepath.Join(dir, "releases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func runJSON(t *testing.T, configPath string, out any, args ...string) {
	t.Helper()
	stdout, err := runCLI(t, configPath, append([]string{"--json"}, args...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), out))
}

func TestReleaseWorkflowThroughCLI(t *testing.T) {
	cfg := setupWorkspace(t, "")

	_, err := runCLI(t, cfg, "entry", "put", "api::category.category", "news", "--data", `{"name": "News"}`)
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "entry", "put", "api::article.article", "a1", "--data", `{"category": "news"}`)
	require.NoError(t, err)

	var created releases.ReleaseView
	runJSON(t, cfg, &created, "release", "create", "Launch")
	require.NotEmpty(t, created.ID)
	assert.Equal(t, release.StatusEmpty, created.Status)

	_, err = runCLI(t, cfg, "action", "add", created.ID, "api::article.article", "a1")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "action", "add", created.ID, "api::category.category", "news")
	require.NoError(t, err)

	var shown releases.ReleaseView
	runJSON(t, cfg, &shown, "release", "show", created.ID)
	assert.Equal(t, release.StatusBlocked, shown.Status)
	assert.Equal(t, 2, shown.Actions.Total)

	_, err = runCLI(t, cfg, "release", "publish", created.ID)
	var domainErr *release.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, release.ErrCodePublishFailed, domainErr.Code)

	// Fixing the draft revalidates the pending action.
	_, err = runCLI(t, cfg, "entry", "put", "api::article.article", "a1", "--data", `{"title": "Hello", "category": "news"}`)
	require.NoError(t, err)
	runJSON(t, cfg, &shown, "release", "show", created.ID)
	assert.Equal(t, release.StatusReady, shown.Status)

	tree, err := runCLI(t, cfg, "release", "tree", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "- publish api::category.category/news\n  - publish api::article.article/a1\n", tree)

	out, err := runCLI(t, cfg, "release", "publish", created.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Published release "+created.ID)

	var entry content.Entry
	runJSON(t, cfg, &entry, "entry", "get", "api::article.article", "a1")
	require.NotNil(t, entry.PublishedAt)
	assert.Equal(t, "Hello", entry.PublishedData["title"])

	_, err = runCLI(t, cfg, "release", "publish", created.ID)
	assert.True(t, release.IsValidation(err))
}

func TestReleaseListTable(t *testing.T) {
	cfg := setupWorkspace(t, "")

	out, err := runCLI(t, cfg, "release", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No releases yet.")

	_, err = runCLI(t, cfg, "release", "create", "Spring")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "release", "create", "Autumn", "--at", "2099-09-01 09:00", "--timezone", "Europe/Paris")
	require.NoError(t, err)

	out, err = runCLI(t, cfg, "release", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Spring")
	assert.Contains(t, out, "2099-09-01T07:00:00Z")
	assert.Contains(t, out, "empty")

	_, err = runCLI(t, cfg, "release", "list", "--state", "bogus")
	assert.True(t, release.IsValidation(err))
}

func TestScheduleUsesSettingsTimezone(t *testing.T) {
	cfg := setupWorkspace(t, "defaults:\n  timezone: America/New_York\n")

	var settings release.Settings
	runJSON(t, cfg, &settings, "settings", "get")
	assert.Equal(t, "America/New_York", settings.DefaultTimezone)

	var created releases.ReleaseView
	runJSON(t, cfg, &created, "release", "create", "Winter")

	var scheduled release.Release
	runJSON(t, cfg, &scheduled, "release", "schedule", created.ID, "--at", "2099-01-15 12:00")
	require.NotNil(t, scheduled.ScheduledAt)
	assert.Equal(t, "2099-01-15T17:00:00Z", scheduled.ScheduledAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, "America/New_York", scheduled.Timezone)

	var cleared release.Release
	runJSON(t, cfg, &cleared, "release", "unschedule", created.ID)
	assert.Nil(t, cleared.ScheduledAt)

	_, err := runCLI(t, cfg, "release", "schedule", created.ID, "--at", "2001-01-01T00:00:00Z")
	assert.True(t, release.IsValidation(err))
}

func TestActionAddManyAndGroupedList(t *testing.T) {
	cfg := setupWorkspace(t, "")
	dir := filepath.Dir(cfg)

	_, err := runCLI(t, cfg, "entry", "put", "api::category.category", "c1", "--data", "{name: One}")
	require.NoError(t, err)
	_, err = runCLI(t, cfg, "entry", "put", "api::article.article", "a1", "--data", `{"title": "T"}`)
	require.NoError(t, err)

	var created releases.ReleaseView
	runJSON(t, cfg, &created, "release", "create", "Bulk")

	file := filepath.Join(dir, "actions.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
- contentType: api::category.category
  documentId: c1
- type: unpublish
  contentType: api::article.article
  documentId: a1
- contentType: api::category.category
  documentId: c1
`), 0o644))

	var result releases.BulkResult
	runJSON(t, cfg, &result, "action", "add-many", created.ID, "--file", file)
	assert.Len(t, result.Created, 2)
	assert.Equal(t, 3, result.TotalEntries)
	assert.Equal(t, 1, result.EntriesAlreadyInRelease)

	out, err := runCLI(t, cfg, "action", "list", created.ID, "--group-by", "action")
	require.NoError(t, err)
	publishAt := strings.Index(out, "publish\n")
	unpublishAt := strings.Index(out, "unpublish\n")
	require.True(t, publishAt >= 0 && unpublishAt >= 0, out)
	assert.Less(t, publishAt, unpublishAt)
	assert.Contains(t, out, "draft")

	_, err = runCLI(t, cfg, "action", "list", created.ID, "--group-by", "colour")
	assert.True(t, release.IsValidation(err))
}

func TestEntryDeleteDropsActions(t *testing.T) {
	cfg := setupWorkspace(t, "")

	_, err := runCLI(t, cfg, "entry", "put", "api::category.category", "c1", "--data", `{"name": "One"}`)
	require.NoError(t, err)
	var created releases.ReleaseView
	runJSON(t, cfg, &created, "release", "create", "Shrinking")
	_, err = runCLI(t, cfg, "action", "add", created.ID, "api::category.category", "c1")
	require.NoError(t, err)

	_, err = runCLI(t, cfg, "entry", "delete", "api::category.category", "c1")
	require.NoError(t, err)

	var shown releases.ReleaseView
	runJSON(t, cfg, &shown, "release", "show", created.ID)
	assert.Equal(t, release.StatusEmpty, shown.Status)
	assert.Equal(t, 0, shown.Actions.Total)
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, err := runCLI(t, filepath.Join(t.TempDir(), "absent.yaml"), "release", "list")
	require.Error(t, err)

	buf := &bytes.Buffer{}
	renderError(buf, err)
	assert.Contains(t, buf.String(), "Failed to start: loading configuration")
	assert.Contains(t, buf.String(), "Suggestion:")
}

func TestRenderErrorShowsDomainContext(t *testing.T) {
	buf := &bytes.Buffer{}
	renderError(buf, release.NotFound("release r9 not found", map[string]interface{}{"release_id": "r9"}))

	out := buf.String()
	assert.Contains(t, out, "NOT_FOUND: release r9 not found")
	assert.Contains(t, out, "release_id: r9")

	buf.Reset()
	renderError(buf, errors.New("disk on fire"))
	assert.Contains(t, buf.String(), "disk on fire")
}

func TestServeRefusesWhenSchedulerDisabled(t *testing.T) {
	cfg := setupWorkspace(t, "scheduler:\n  enabled: false\n")

	_, err := runCLI(t, cfg, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.enabled is false")
}

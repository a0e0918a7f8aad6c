package toolexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-soc/vigil/pkg/store"
)

func TestNewCatalog_RejectsMissingSearchMode(t *testing.T) {
	_, err := NewCatalog([]ToolDef{
		{Name: "find_similar_alerts", Kind: KindSearch, Index: store.IndexAlerts},
	})
	var ide *InvalidDefinitionError
	require.ErrorAs(t, err, &ide)
}

func TestNewCatalog_RejectsUnnamed(t *testing.T) {
	_, err := NewCatalog([]ToolDef{{Kind: KindQuery, Index: store.IndexAlerts}})
	require.Error(t, err)
}

func TestExecutor_ValidatesRequiredParams(t *testing.T) {
	catalog, err := NewCatalog([]ToolDef{
		{
			Name:  "assets_by_owner",
			Kind:  KindQuery,
			Index: store.IndexAssets,
			Params: []ParamSpec{
				{Name: "owner", Type: "string", Required: true},
			},
		},
	})
	require.NoError(t, err)

	s := store.NewMemStore()
	exec := NewExecutor(catalog, s)

	_, err = exec.Execute(context.Background(), "assets_by_owner", map[string]any{})
	var ice *InvalidCallError
	require.ErrorAs(t, err, &ice)
}

func TestExecutor_ExecutesQueryAgainstStore(t *testing.T) {
	catalog, err := NewCatalog([]ToolDef{
		{
			Name:  "assets_by_owner",
			Kind:  KindQuery,
			Index: store.IndexAssets,
			Params: []ParamSpec{
				{Name: "owner", Type: "string", Required: true},
			},
		},
	})
	require.NoError(t, err)

	s := store.NewMemStore()
	ctx := context.Background()
	_, err = s.Index(ctx, store.IndexAssets, "host-1", map[string]any{"owner": "team-a"}, false)
	require.NoError(t, err)
	_, err = s.Index(ctx, store.IndexAssets, "host-2", map[string]any{"owner": "team-b"}, false)
	require.NoError(t, err)

	exec := NewExecutor(catalog, s)
	result, err := exec.Execute(ctx, "assets_by_owner", map[string]any{"owner": "team-a"})
	require.NoError(t, err)
	assert.Len(t, result.Docs, 1)
}

func TestExecutor_UnknownToolReturnsToolNotFound(t *testing.T) {
	catalog, _ := NewCatalog(nil)
	exec := NewExecutor(catalog, store.NewMemStore())
	_, err := exec.Execute(context.Background(), "nonexistent", nil)
	require.ErrorIs(t, err, ErrToolNotFound)
}

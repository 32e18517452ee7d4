package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine returns canned vectors per text, with a fallback for
// anything unlisted.
type fakeEngine struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEngine) Name() string { return "fake" }

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "Aventuras_Galácticas", NormalizeTitle("Aventuras Galácticas"))
	assert.Equal(t, "El_Misterio_del_Faro", NormalizeTitle("  El  Misterio \t del Faro "))
	assert.Equal(t, "Solo", NormalizeTitle("Solo"))
	assert.Equal(t, "", NormalizeTitle("   "))
}

func openTestStore(t *testing.T, engine *fakeEngine) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "index.db"), engine, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetByTitle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, &fakeEngine{})

	require.NoError(t, store.Add(ctx, "Aventuras_Galácticas", "Aventuras Galácticas", "Aventuras_Galácticas.pdf", "A space crew explores distant worlds."))

	t.Run("hit normalizes whitespace", func(t *testing.T) {
		res := store.GetByTitle(ctx, "Aventuras  Galácticas")
		require.True(t, res.Success, res.Error)
		require.Len(t, res.Documents, 1)
		assert.Equal(t, 1.0, res.Documents[0].Similarity)
		assert.Equal(t, "Aventuras Galácticas", res.Documents[0].Title())
		assert.Equal(t, "A space crew explores distant worlds.", res.Documents[0].Text)
	})

	t.Run("miss is a failure", func(t *testing.T) {
		res := store.GetByTitle(ctx, "Terror Nocturno")
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "Terror Nocturno")
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	engine := &fakeEngine{vectors: map[string][]float32{
		"space adventure":  {1, 0, 0},
		"space crew story": {0.9, 0.1, 0},
		"lighthouse tale":  {0, 1, 0},
	}}
	store := openTestStore(t, engine)

	require.NoError(t, store.Add(ctx, "Aventuras_Galácticas", "Aventuras Galácticas", "a.pdf", "space crew story"))
	require.NoError(t, store.Add(ctx, "El_Misterio_del_Faro", "El Misterio del Faro", "b.pdf", "lighthouse tale"))

	t.Run("orders by similarity", func(t *testing.T) {
		res := store.Search(ctx, "space adventure", 2)
		require.True(t, res.Success, res.Error)
		require.Len(t, res.Documents, 2)
		assert.Equal(t, "Aventuras Galácticas", res.Documents[0].Title())
		assert.Greater(t, res.Documents[0].Similarity, res.Documents[1].Similarity)
		assert.InDelta(t, 0.99, res.Documents[0].Similarity, 0.02)
	})

	t.Run("respects topK", func(t *testing.T) {
		res := store.Search(ctx, "space adventure", 1)
		require.True(t, res.Success, res.Error)
		assert.Len(t, res.Documents, 1)
	})

	t.Run("embedding failure", func(t *testing.T) {
		engine.err = fmt.Errorf("engine down")
		defer func() { engine.err = nil }()

		res := store.Search(ctx, "space adventure", 2)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "embedding failed")
	})
}

func TestSearch_EmptyIndex(t *testing.T) {
	store := openTestStore(t, &fakeEngine{})

	res := store.Search(context.Background(), "anything", 3)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestIngestDir(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t, &fakeEngine{})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Terror_Nocturno.txt"), []byte("A haunted town after dark."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Mundos_Paralelos.md"), []byte("# Mundos Paralelos\nParallel universes collide."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))

	n, err := store.IngestDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	res := store.GetByTitle(ctx, "Terror Nocturno")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Terror Nocturno", res.Documents[0].Title())
}

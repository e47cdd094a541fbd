package talentdeck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sablehq/talentdeck/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithExtractor(mock.NewMockCardExtractor()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.TalentRepository())
		assert.NotNil(t, db.DimensionRepository())
		assert.NotNil(t, db.TagRepository())
		assert.NotNil(t, db.JobRepository())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("seeds builtin dimensions", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithExtractor(mock.NewMockCardExtractor()))
		require.NoError(t, err)
		defer db.Close()

		dims, err := db.DimensionRepository().ListDimensions(context.Background())
		require.NoError(t, err)
		require.Len(t, dims, len(builtinDimensions))
		assert.Equal(t, "personal_info", dims[0].Key)
		for _, dim := range dims {
			assert.True(t, dim.Builtin, "seeded dimension %s should be builtin", dim.Key)
		}
	})

	t.Run("reopen does not duplicate builtins", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithExtractor(mock.NewMockCardExtractor()))
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db, err = NewDatabase(tmpDir, WithExtractor(mock.NewMockCardExtractor()))
		require.NoError(t, err)
		defer db.Close()

		dims, err := db.DimensionRepository().ListDimensions(context.Background())
		require.NoError(t, err)
		assert.Len(t, dims, len(builtinDimensions))
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir(), WithExtractor(mock.NewMockCardExtractor()))
	require.NoError(t, err)
	require.NotNil(t, db)

	assert.NoError(t, db.Close())
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase(t.TempDir(), WithExtractor(mock.NewMockCardExtractor()))
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create card repairer", func(t *testing.T) {
		repairer := db.NewCardRepairer(nil, os.Stderr)
		require.NotNil(t, repairer)
	})
}

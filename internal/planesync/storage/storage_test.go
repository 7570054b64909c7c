package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))
	assert.False(t, store.Exists())
	assert.Equal(t, DefaultRecord(), store.Load())
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	record := NewStore(path).Load()
	assert.Equal(t, DefaultRecord(), record)
	assert.Equal(t, StatusSuccess, record.LastSyncStatus)
	assert.NotNil(t, record.LastIssues)
	assert.Nil(t, record.LastSync)
	assert.Nil(t, record.LastError)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	lastSync := time.Date(2024, 1, 29, 8, 0, 0, 0, time.UTC)
	lastError := "fetch issues: unexpected status 500: boom"

	tests := []struct {
		name   string
		record Record
	}{
		{name: "default", record: DefaultRecord()},
		{
			name: "success",
			record: Record{
				LastSync:       &lastSync,
				LastSyncStatus: StatusSuccess,
				LastIssues:     []string{"issue1", "issue2"},
			},
		},
		{
			name: "error",
			record: Record{
				LastSync:       &lastSync,
				LastSyncStatus: StatusError,
				LastIssues:     []string{"issue1"},
				ErrorCount:     2,
				LastError:      &lastError,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(filepath.Join(t.TempDir(), "nested", "dir", "state.json"))
			require.NoError(t, store.Save(tt.record))
			assert.True(t, store.Exists())

			loaded := store.Load()
			assert.Equal(t, tt.record.LastSyncStatus, loaded.LastSyncStatus)
			assert.Equal(t, tt.record.LastIssues, loaded.LastIssues)
			assert.Equal(t, tt.record.ErrorCount, loaded.ErrorCount)
			assert.Equal(t, tt.record.LastError, loaded.LastError)
			if tt.record.LastSync == nil {
				assert.Nil(t, loaded.LastSync)
			} else {
				require.NotNil(t, loaded.LastSync)
				assert.True(t, tt.record.LastSync.Equal(*loaded.LastSync))
			}
		})
	}
}

func TestSaveWritesDocumentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, NewStore(path).Save(Record{LastSyncStatus: StatusSuccess}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"last_sync": null,
		"last_sync_status": "success",
		"last_issues": [],
		"error_count": 0,
		"last_error": null
	}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestLoadStateWithOffsetTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	content := `{"last_sync": "2024-01-29T08:00:00.123456+00:00", "last_sync_status": "error", "last_issues": ["a"], "error_count": 1, "last_error": "boom"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	record := NewStore(path).Load()
	require.NotNil(t, record.LastSync)
	assert.Equal(t, 2024, record.LastSync.Year())
	assert.Equal(t, StatusError, record.LastSyncStatus)
	assert.Equal(t, 1, record.ErrorCount)
	require.NotNil(t, record.LastError)
	assert.Equal(t, "boom", *record.LastError)
}

func TestLoadStateWithoutOffsetTimestamp(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state.json")
	content := `{"last_sync": "2024-01-29T08:00:00.123456", "last_sync_status": "error", "last_issues": ["a", "b"], "error_count": 2, "last_error": "boom"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	record := NewStoreIn(path, paris).Load()
	require.NotNil(t, record.LastSync)
	assert.True(t, time.Date(2024, 1, 29, 8, 0, 0, 123456000, paris).Equal(*record.LastSync))
	assert.Equal(t, StatusError, record.LastSyncStatus)
	assert.Equal(t, []string{"a", "b"}, record.LastIssues)
	assert.Equal(t, 2, record.ErrorCount)
	require.NotNil(t, record.LastError)
	assert.Equal(t, "boom", *record.LastError)
}

func TestLoadStateWithInvalidTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	content := `{"last_sync": "last tuesday", "error_count": 2}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	assert.Equal(t, DefaultRecord(), NewStore(path).Load())
}

func TestLoadStateWithNullTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	content := `{"last_sync": null, "error_count": 1}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	record := NewStore(path).Load()
	assert.Nil(t, record.LastSync)
	assert.Equal(t, 1, record.ErrorCount)
}

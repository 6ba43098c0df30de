package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Columns: []string{"query", "intent"},
		Rows: [][]string{
			{"stress relief putty", "informational"},
			{"buy therapy putty", "transactional"},
		},
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.Create(testSnapshot(), "upload", map[string]string{"type": "keywords"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), got)

	history, err := s.History(id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, InitialVersionComment, history[0].Comment)
}

func TestCreateAllowsEmptySnapshot(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.Create(Snapshot{}, "upload", nil)
	require.NoError(t, err)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
}

func TestCreateRejectsMalformedSnapshot(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.Create(Snapshot{Rows: [][]string{{"orphan"}}}, "upload", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = s.Create(Snapshot{Columns: []string{"a", "b"}, Rows: [][]string{{"only one"}}}, "upload", nil)
	require.ErrorAs(t, err, &verr)
}

func TestUpdateAppendsOneVersion(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.Create(testSnapshot(), "upload", nil)
	require.NoError(t, err)

	next := Snapshot{Columns: []string{"query"}, Rows: [][]string{{"new keyword"}}}
	require.NoError(t, s.Update(id, next, "replaced rows", NoVersionCheck))

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	history, err := s.History(id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "replaced rows", history[1].Comment)
}

func TestUpdateUnknownID(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	err = s.Update("nope", testSnapshot(), "", NoVersionCheck)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestUpdateOptimisticConflict(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.Create(testSnapshot(), "upload", nil)
	require.NoError(t, err)

	// Writer A observed 1 version and succeeds.
	require.NoError(t, s.Update(id, testSnapshot(), "writer a", 1))

	// Writer B also observed 1 version; its update must fail fast.
	err = s.Update(id, Snapshot{}, "writer b", 1)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.Expected)
	assert.Equal(t, 2, conflict.Actual)

	// The failed update must not have appended anything.
	history, err := s.History(id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRestoreAppendsNeverTruncates(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	first := testSnapshot()
	id, err := s.Create(first, "upload", nil)
	require.NoError(t, err)

	second := Snapshot{Columns: []string{"query"}, Rows: [][]string{{"changed"}}}
	require.NoError(t, s.Update(id, second, "change", NoVersionCheck))

	require.NoError(t, s.Restore(id, 0))

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	history, err := s.History(id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Restored to version 0", history[2].Comment)
}

func TestRestoreOutOfRange(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := s.Create(testSnapshot(), "upload", nil)
	require.NoError(t, err)

	err = s.Restore(id, 5)
	var vr *VersionRangeError
	require.ErrorAs(t, err, &vr)

	err = s.Restore(id, -1)
	require.ErrorAs(t, err, &vr)
}

func TestQueryByMetadata(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	kw1, err := s.Create(testSnapshot(), "upload", map[string]string{"type": "keywords"})
	require.NoError(t, err)
	_, err = s.Create(Snapshot{}, "pipeline", map[string]string{"type": "posts"})
	require.NoError(t, err)
	kw2, err := s.Create(Snapshot{}, "discovery", map[string]string{"type": "keywords", "site": "example.com"})
	require.NoError(t, err)

	ids := s.QueryByMetadata(map[string]string{"type": "keywords"})
	assert.Equal(t, []string{kw1, kw2}, ids)

	// Most recent matching dataset is the last element.
	assert.Equal(t, kw2, ids[len(ids)-1])

	// Idempotent without intervening mutation.
	assert.Equal(t, ids, s.QueryByMetadata(map[string]string{"type": "keywords"}))

	assert.Empty(t, s.QueryByMetadata(map[string]string{"type": "images"}))
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	id, err := s.Create(testSnapshot(), "upload", map[string]string{"type": "keywords"})
	require.NoError(t, err)
	require.NoError(t, s.Update(id, Snapshot{Columns: []string{"query"}, Rows: [][]string{{"v2"}}}, "second", NoVersionCheck))

	reopened, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Len())

	got, err := reopened.Get(id)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"v2"}}, got.Rows)

	history, err := reopened.History(id)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	meta, err := reopened.GetMetadata(id)
	require.NoError(t, err)
	assert.Equal(t, "keywords", meta["type"])
}

func TestCorruptArtifactDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.json"), []byte("{not json"), 0o644))

	s, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSchemaInvalidArtifactDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	// Valid JSON but wrong shape: datasets must be an array.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.json"), []byte(`{"datasets": {"id": "x"}}`), 0o644))

	s, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ranjiththeeti/harass/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

func newSQLiteRepo(t *testing.T) MessageRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "messages.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func safeMessage(id string, ts time.Time) *models.Message {
	return &models.Message{
		ID:          id,
		Content:     "hello " + id,
		Timestamp:   ts,
		SafetyScore: 1.0,
	}
}

func flaggedMessage(id string, ts time.Time, t models.HarassmentType) *models.Message {
	reason := "reason " + id
	return &models.Message{
		ID:             id,
		Content:        "nasty " + id,
		Timestamp:      ts,
		IsFlagged:      true,
		SafetyScore:    0.2,
		HarassmentType: &t,
		FlaggedReason:  &reason,
	}
}

func TestSQLite_InsertAndFindRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	flagged := flaggedMessage("a", baseTime, models.Threats)
	safe := safeMessage("b", baseTime.Add(time.Second))

	require.NoError(t, repo.Insert(ctx, flagged))
	require.NoError(t, repo.Insert(ctx, safe))

	got, err := repo.Find(ctx, Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.True(t, got[0].Timestamp.Equal(safe.Timestamp))
	assert.False(t, got[0].IsFlagged)
	assert.Nil(t, got[0].HarassmentType)
	assert.Nil(t, got[0].FlaggedReason)

	assert.Equal(t, flagged.ID, got[1].ID)
	assert.Equal(t, flagged.Content, got[1].Content)
	assert.True(t, got[1].Timestamp.Equal(flagged.Timestamp))
	assert.True(t, got[1].IsFlagged)
	assert.Equal(t, 0.2, got[1].SafetyScore)
	require.NotNil(t, got[1].HarassmentType)
	assert.Equal(t, models.Threats, *got[1].HarassmentType)
	require.NotNil(t, got[1].FlaggedReason)
	assert.Equal(t, "reason a", *got[1].FlaggedReason)
}

func TestSQLite_DuplicateIDRejected(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, safeMessage("dup", baseTime)))
	assert.Error(t, repo.Insert(ctx, safeMessage("dup", baseTime)))
}

func TestSQLite_FindNewestFirstWithLimit(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		require.NoError(t, repo.Insert(ctx, safeMessage(fmt.Sprintf("m%03d", i), baseTime.Add(time.Duration(i)*time.Millisecond))))
	}

	got, err := repo.Find(ctx, Filter{}, 100)
	require.NoError(t, err)
	require.Len(t, got, 100)

	assert.Equal(t, "m119", got[0].ID)
	assert.Equal(t, "m020", got[99].ID)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.After(got[i-1].Timestamp))
	}
}

func TestSQLite_CountsAndFilters(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, safeMessage("s1", baseTime)))
	require.NoError(t, repo.Insert(ctx, safeMessage("s2", baseTime.Add(time.Second))))
	require.NoError(t, repo.Insert(ctx, flaggedMessage("f1", baseTime.Add(2*time.Second), models.Bullying)))
	require.NoError(t, repo.Insert(ctx, flaggedMessage("f2", baseTime.Add(3*time.Second), models.Bullying)))
	require.NoError(t, repo.Insert(ctx, flaggedMessage("f3", baseTime.Add(4*time.Second), models.ToxicLanguage)))

	total, err := repo.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	flagged, err := repo.Count(ctx, Flagged())
	require.NoError(t, err)
	assert.EqualValues(t, 3, flagged)

	bullying, err := repo.Count(ctx, OfType(models.Bullying))
	require.NoError(t, err)
	assert.EqualValues(t, 2, bullying)

	byType, err := repo.CountByHarassmentType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.HarassmentType]int64{
		models.Bullying:      2,
		models.ToxicLanguage: 1,
	}, byType)

	recent, err := repo.Find(ctx, Flagged(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "f3", recent[0].ID)
	assert.Equal(t, "f2", recent[1].ID)
}

func TestSQLite_DeleteAll(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Insert(ctx, safeMessage(fmt.Sprintf("m%d", i), baseTime.Add(time.Duration(i)*time.Second))))
	}

	deleted, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)

	got, err := repo.Find(ctx, Filter{}, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	deleted, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, safeMessage("kept", baseTime)))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(path, zap.NewNop())
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Ping(ctx))

	total, err := repo.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestNew_UnsupportedType(t *testing.T) {
	_, err := New(context.Background(), Options{Type: "cassandra"}, zap.NewNop())
	assert.Error(t, err)
}

func TestFilterWhere(t *testing.T) {
	where, args := Filter{}.where()
	assert.Empty(t, where)
	assert.Empty(t, args)

	f := Flagged()
	f.HarassmentType = OfType(models.Threats).HarassmentType
	where, args = f.where()
	assert.Equal(t, " WHERE is_flagged = ? AND harassment_type = ?", where)
	assert.Equal(t, []interface{}{true, "threats"}, args)
}

func TestStoredMessageRejectsBadTimestamp(t *testing.T) {
	_, err := storedMessage{ID: "x", Timestamp: "yesterday"}.toModel()
	assert.Error(t, err)
}

func TestTimestampFormatSortsChronologically(t *testing.T) {
	earlier := models.FormatTimestamp(baseTime)
	later := models.FormatTimestamp(baseTime.Add(time.Microsecond))

	assert.Less(t, earlier, later)
	assert.Equal(t, "2025-03-14T09:26:53.589793Z", earlier)
}

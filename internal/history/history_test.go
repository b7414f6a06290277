package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yorickpeterse/wobsite/internal/metrics"
	"github.com/yorickpeterse/wobsite/internal/sitebuild"
)

func testReport(id string, start time.Time, outcome metrics.Outcome) *sitebuild.BuildReport {
	return &sitebuild.BuildReport{
		ID:      id,
		Trigger: metrics.TriggerManual,
		Start:   start,
		End:     start.Add(120 * time.Millisecond),
		Files:   4,
		Jobs:    6,
		Outcome: outcome,
	}
}

func TestStore_RecordAndList_NewestFirst(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Record(ctx, testReport("a", base, metrics.OutcomeSuccess)))
	require.NoError(t, store.Record(ctx, testReport("b", base.Add(time.Minute), metrics.OutcomeSuccess)))
	require.NoError(t, store.Record(ctx, testReport("c", base.Add(2*time.Minute), metrics.OutcomeFailed)))

	reports, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	require.Equal(t, "c", reports[0].ID)
	require.Equal(t, "b", reports[1].ID)
	require.Equal(t, "a", reports[2].ID)

	require.Equal(t, metrics.OutcomeFailed, reports[0].Outcome)
	require.Equal(t, metrics.TriggerManual, reports[0].Trigger)
	require.Equal(t, 4, reports[0].Files)
	require.Equal(t, 6, reports[0].Jobs)
	require.True(t, base.Add(2*time.Minute).Equal(reports[0].Start))
	require.Equal(t, 120*time.Millisecond, reports[0].Duration())
}

func TestStore_ListLimit(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, testReport(id, base.Add(time.Duration(i)*time.Minute), metrics.OutcomeSuccess)))
	}

	reports, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.Equal(t, "c", reports[0].ID)
	require.Equal(t, "b", reports[1].ID)
}

func TestStore_ErrorsRoundTrip(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	report := testReport("x", time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC), metrics.OutcomeFailed)
	report.Failures = 2
	report.Errors = []string{"public/a.html: no title", "public/b.html: unreadable"}

	require.NoError(t, store.Record(ctx, report))

	reports, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, report.Errors, reports[0].Errors)
	require.Equal(t, 2, reports[0].Failures)
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "history.db")

	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(),
		testReport("a", time.Now().UTC(), metrics.OutcomeSuccess)))
	require.FileExists(t, path)
}

func TestStore_DuplicateIDFails(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	report := testReport("same", time.Now().UTC(), metrics.OutcomeSuccess)

	require.NoError(t, store.Record(ctx, report))
	require.Error(t, store.Record(ctx, report))
}

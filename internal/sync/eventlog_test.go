package syncx

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/ielts-listening/internal/db"
)

func TestEventRepoPublishAndSince(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:eventlog_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbh.Close()
	dbh.SetMaxOpenConns(1)

	r := NewEventRepo(dbh, "")
	require.NoError(t, r.Publish(ctx, "AttemptSubmitted", "a1", map[string]any{"band_score": 6.5}))
	require.NoError(t, r.Publish(ctx, "AttemptSubmitted", "a2", map[string]any{"band_score": 7}))
	require.NoError(t, r.Append(ctx, Event{SiteID: "branch-2", Type: "TestPublished", Key: "t1", DataJSON: "{}"}))

	all, err := r.Since(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a1", all[0].Key)
	assert.Equal(t, "local", all[0].SiteID)
	assert.Equal(t, "branch-2", all[2].SiteID)
	assert.Less(t, all[0].Seq, all[1].Seq)

	var payload map[string]float64
	require.NoError(t, json.Unmarshal([]byte(all[0].DataJSON), &payload))
	assert.Equal(t, 6.5, payload["band_score"])

	rest, err := r.Since(ctx, all[0].Seq, 1)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "a2", rest[0].Key)
}

func TestEventRepoPublishRejectsUnencodable(t *testing.T) {
	r := NewEventRepo(nil, "site")
	err := r.Publish(context.Background(), "x", "k", make(chan int))
	assert.Error(t, err)
}

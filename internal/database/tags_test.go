package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plex-faces/internal/testsupport"
)

func TestReconcileRoundTrip(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	mid := lib.AddPhoto("/photos/party.jpg")
	d := openStore(t, lib)
	ctx := context.Background()

	before := time.Now().Unix()
	require.NoError(t, d.Reconcile(ctx, mid, []string{"Bob", "Alice", " Bob ", ""}))

	tags, err := d.GetFaceTags(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Alice"}, tags)
	assert.GreaterOrEqual(t, lib.FaceUpdateTime(mid), before)
}

func TestReconcileReplacesFaceTags(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	mid := lib.AddPhoto("/photos/party.jpg")
	other := lib.AddPhoto("/photos/other.jpg")
	lib.AddTag(mid, "Carol", testsupport.TagTypeFace)
	lib.AddTag(mid, "Beach", testsupport.TagTypeGenre)
	lib.AddTag(other, "Carol", testsupport.TagTypeFace)
	d := openStore(t, lib)
	ctx := context.Background()

	require.NoError(t, d.Reconcile(ctx, mid, []string{"Alice"}))

	tags, err := d.GetFaceTags(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, tags)

	otherTags, err := d.GetFaceTags(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol"}, otherTags)

	var genre int
	require.NoError(t, lib.DB().QueryRow(
		"SELECT COUNT(*) FROM taggings tg JOIN tags t ON t.id = tg.tag_id WHERE tg.metadata_item_id = ? AND t.tag_type = ?",
		mid, testsupport.TagTypeGenre,
	).Scan(&genre))
	assert.Equal(t, 1, genre, "non-face tags must survive a face reconcile")
}

func TestReconcileReusesExistingTag(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	a := lib.AddPhoto("/photos/a.jpg")
	b := lib.AddPhoto("/photos/b.jpg")
	d := openStore(t, lib)
	ctx := context.Background()

	require.NoError(t, d.Reconcile(ctx, a, []string{"Alice"}))
	require.NoError(t, d.Reconcile(ctx, b, []string{"Alice"}))

	assert.Equal(t, []string{"Alice"}, lib.TagNames(testsupport.TagTypeFace))
}

func TestReconcileEmptySetKeepsTags(t *testing.T) {
	lib := testsupport.NewLibrary(t, testsupport.WithMigratedColumns())
	mid := lib.AddPhoto("/photos/party.jpg")
	lib.AddTag(mid, "Alice", testsupport.TagTypeFace)
	lib.SetFaceUpdateTime(mid, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	d := openStore(t, lib)
	ctx := context.Background()

	before := time.Now().Unix()
	require.NoError(t, d.Reconcile(ctx, mid, nil))

	tags, err := d.GetFaceTags(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, tags)
	assert.GreaterOrEqual(t, lib.FaceUpdateTime(mid), before)
}

func TestReconcileUnknownRecordRollsBack(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	d := openStore(t, lib)

	err := d.Reconcile(context.Background(), 4242, []string{"Ghost"})
	require.Error(t, err)

	assert.Empty(t, lib.TagNames(testsupport.TagTypeFace), "tag insert must be rolled back")
}

func TestCleanLoneTags(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	mid := lib.AddPhoto("/photos/a.jpg")
	lib.AddTag(mid, "Alice", testsupport.TagTypeFace)
	lib.AddLoneTag("Bob", testsupport.TagTypeFace)
	lib.AddLoneTag("Unused genre", testsupport.TagTypeGenre)
	d := openStore(t, lib)

	n, err := d.CleanLoneTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, []string{"Alice"}, lib.TagNames(testsupport.TagTypeFace))
	assert.Equal(t, []string{"Unused genre"}, lib.TagNames(testsupport.TagTypeGenre))

	n, err = d.CleanLoneTags(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTagFilterMatches(t *testing.T) {
	tests := []struct {
		name   string
		filter TagFilter
		tag    string
		want   bool
	}{
		{name: "empty pattern matches all", filter: TagFilter{}, tag: "Anyone", want: true},
		{name: "contains ignores case", filter: TagFilter{Pattern: "ali"}, tag: "Natalie", want: true},
		{name: "contains miss", filter: TagFilter{Pattern: "bob"}, tag: "Alice", want: false},
		{name: "prefix", filter: TagFilter{Pattern: "al", Mode: MatchPrefix}, tag: "Alice", want: true},
		{name: "prefix miss", filter: TagFilter{Pattern: "ice", Mode: MatchPrefix}, tag: "Alice", want: false},
		{name: "exact", filter: TagFilter{Pattern: "alice", Mode: MatchExact}, tag: "Alice", want: true},
		{name: "exact miss", filter: TagFilter{Pattern: "alic", Mode: MatchExact}, tag: "Alice", want: false},
		{name: "case sensitive", filter: TagFilter{Pattern: "alice", Mode: MatchExact, CaseSensitive: true}, tag: "Alice", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.tag))
		})
	}
}

func TestParseMatchMode(t *testing.T) {
	mode, ok := ParseMatchMode("Prefix")
	assert.True(t, ok)
	assert.Equal(t, MatchPrefix, mode)

	mode, ok = ParseMatchMode("")
	assert.True(t, ok)
	assert.Equal(t, MatchContains, mode)

	_, ok = ParseMatchMode("regex")
	assert.False(t, ok)
}

func TestListAndDeleteTags(t *testing.T) {
	lib := testsupport.NewLibrary(t)
	a := lib.AddPhoto("/photos/a.jpg")
	b := lib.AddPhoto("/photos/b.jpg")
	lib.AddTag(a, "Alice", testsupport.TagTypeFace)
	lib.AddTag(b, "Alice", testsupport.TagTypeFace)
	lib.AddTag(b, "Bob", testsupport.TagTypeFace)
	lib.AddTag(b, "Alice Springs", testsupport.TagTypeGenre)
	d := openStore(t, lib)
	ctx := context.Background()

	all, err := d.ListTags(ctx, TagFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alice, err := d.ListTags(ctx, TagFilter{Pattern: "ALICE"})
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.ElementsMatch(t, []int64{a, b}, []int64{alice[0].MID, alice[1].MID})

	n, err := d.DeleteTags(ctx, TagFilter{Pattern: "alice", Mode: MatchExact})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	tagsB, err := d.GetFaceTags(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, tagsB)

	// Detached tag is listed without a photo until cleanup removes it
	alice, err = d.ListTags(ctx, TagFilter{Pattern: "alice"})
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Zero(t, alice[0].MID)

	_, err = d.CleanLoneTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, lib.TagNames(testsupport.TagTypeFace))
}

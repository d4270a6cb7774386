package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}

func TestPageProducesTokenThatRoundTrips(t *testing.T) {
	rows := []int64{50, 40, 30, 20}
	page, info := Page(rows, 3, func(v int64) int64 { return v })

	assert.Equal(t, []int64{50, 40, 30}, page)
	require.True(t, info.HasMore)

	after, err := Pagination{PageToken: info.NextPageToken}.After()
	require.NoError(t, err)
	assert.Equal(t, int64(30), after)
}

func TestPageWithoutMore(t *testing.T) {
	page, info := Page([]int64{1, 2}, 3, func(v int64) int64 { return v })
	assert.Len(t, page, 2)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}

func TestAfterRejectsGarbage(t *testing.T) {
	_, err := Pagination{PageToken: "%%%"}.After()
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

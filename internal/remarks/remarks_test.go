package remarks

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batatlas/batatlas/internal/occurrence"
)

func withRemark(s *string) occurrence.Record {
	return occurrence.Record{OccurrenceRemarks: s}
}

func TestTopOrdering(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	for range 3 {
		c.Add(withRemark(nil))
	}
	for range 3 {
		c.Add(withRemark(occurrence.Str("BCT survey")))
	}
	c.Add(withRemark(occurrence.Str("roost")))
	c.Add(withRemark(occurrence.Str("feeding")))
	c.Add(withRemark(occurrence.Str("feeding ")))

	got := c.Top(0)
	assert.Equal(t, []Entry{
		{Null: true, Count: 3},
		{Text: "BCT survey", Count: 3},
		{Text: "feeding", Count: 1},
		{Text: "feeding ", Count: 1},
		{Text: "roost", Count: 1},
	}, got)
	assert.Equal(t, 5, c.Distinct())

	top := c.Top(2)
	require.Len(t, top, 2)
	assert.True(t, top[0].Null)
}

func TestNullAndLiteralNullTextAreDistinct(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	c.Add(withRemark(nil))
	c.Add(withRemark(nil))
	c.Add(withRemark(occurrence.Str("<null>")))
	c.Add(withRemark(occurrence.Str("")))

	assert.Equal(t, []Entry{
		{Null: true, Count: 2},
		{Text: "", Count: 1},
		{Text: "<null>", Count: 1},
	}, c.Top(0))
	assert.Equal(t, 3, c.Distinct())
}

func TestTopEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, NewCounter().Top(10))
}

func TestCounterConcurrent(t *testing.T) {
	t.Parallel()

	c := NewCounter()
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				c.Add(withRemark(occurrence.Str("x")))
			}
		})
	}
	wg.Wait()
	assert.Equal(t, []Entry{{Text: "x", Count: 800}}, c.Top(1))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Entry{{Text: "a, b", Count: 2}, {Null: true, Count: 1}}))
	assert.Equal(t, "count,remarks\n2,\"a, b\"\n1,\n", buf.String())
}

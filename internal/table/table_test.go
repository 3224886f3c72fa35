// FILENAME: internal/table/table_test.go
package table_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/table"
)

func resp(status int) *models.Response {
	return models.NewResponse(0, status, nil, []byte("x"), 0, nil)
}

func TestTable_AddVariants(t *testing.T) {
	tbl := table.New()

	tbl.Add(resp(200))
	tbl.Add(nil)
	assert.True(t, tbl.AddIf(resp(201), true))
	assert.False(t, tbl.AddIf(resp(202), false))

	is404 := func(r *models.Response) bool { return r.StatusCode == 404 }
	assert.True(t, tbl.AddWhen(resp(404), is404))
	assert.False(t, tbl.AddWhen(resp(500), is404))
	assert.False(t, tbl.AddWhen(resp(500), nil))

	var got []int
	for _, r := range tbl.Records() {
		got = append(got, r.StatusCode)
	}
	assert.Equal(t, []int{200, 201, 404}, got)
}

func TestTable_SnapshotIsolation(t *testing.T) {
	tbl := table.New()
	tbl.Add(resp(200))
	snap := tbl.Records()
	tbl.Add(resp(201))
	assert.Len(t, snap, 1)
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_ConcurrentAddsAndSinks(t *testing.T) {
	var seen atomic.Int64
	tbl := table.New(table.SinkFunc(func(*models.Response) { seen.Add(1) }))

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl.Add(resp(200 + i%5))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 200, tbl.Len())
	assert.EqualValues(t, 200, seen.Load())
}

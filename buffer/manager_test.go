package buffer

import (
	"pagestore/disk"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	dm *disk.Manager
	bm *Manager
	fd int
}

// setupTest creates a disk manager over a temp directory and a buffer pool of
// the given capacity on top of it.
func setupTest(t *testing.T, poolSize int) *testEnv {
	t.Helper()

	dm, err := disk.NewManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })

	fd, err := dm.Open("test.db")
	require.NoError(t, err)

	return &testEnv{dm: dm, bm: NewManager(dm, poolSize), fd: fd}
}

// spyReplacer counts how often the pool asks the policy for a victim.
type spyReplacer struct {
	*LRUReplacer
	victimCalls int
}

func (s *spyReplacer) Victim() (FrameID, bool) {
	s.victimCalls++
	return s.LRUReplacer.Victim()
}

func TestManagerConstruction(t *testing.T) {
	env := setupTest(t, 3)
	assert.Equal(t, 3, env.bm.Available(), "all frames start unpinned")

	assert.Panics(t, func() { NewManager(env.dm, 0) })
	assert.Panics(t, func() { NewManager(env.dm, -1) })
}

func TestFetchResidentPage(t *testing.T) {
	env := setupTest(t, 2)

	p0, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	assert.Equal(t, disk.NewPageID(env.fd, 0), p0.ID())
	assert.Equal(t, 1, p0.PinCount())
	require.NoError(t, env.bm.UnpinPage(p0.ID(), false))

	p1, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	assert.Equal(t, disk.NewPageID(env.fd, 1), p1.ID())
	require.NoError(t, env.bm.UnpinPage(p1.ID(), false))

	// Both pages are still resident and unpinned, so fetching the first one
	// again must hit the pool without touching the disk.
	reads := env.dm.PagesRead()
	fetched, err := env.bm.FetchPage(p0.ID())
	require.NoError(t, err)
	assert.Same(t, p0, fetched, "frame slots are stable")
	assert.Equal(t, 1, fetched.PinCount())
	assert.Equal(t, reads, env.dm.PagesRead(), "resident fetch must not read from disk")

	require.NoError(t, env.bm.UnpinPage(p0.ID(), false))
}

func TestPoolExhaustion(t *testing.T) {
	env := setupTest(t, 1)

	p0, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)

	// The one frame is pinned and the free list is empty: both allocation
	// paths must fail deterministically until something is unpinned.
	_, err = env.bm.NewPage(env.fd)
	assert.ErrorIs(t, err, ErrNoAvailableFrame)
	_, err = env.bm.FetchPage(disk.NewPageID(env.fd, 123))
	assert.ErrorIs(t, err, ErrNoAvailableFrame)

	require.NoError(t, env.bm.UnpinPage(p0.ID(), false))
	_, err = env.bm.NewPage(env.fd)
	assert.NoError(t, err, "allocation succeeds once a page is unpinned")
}

func TestDirtyWriteBackOnReuse(t *testing.T) {
	env := setupTest(t, 1)

	p0, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	id0 := p0.ID()
	require.NoError(t, p0.Contents().SetString(0, "before eviction"))
	require.NoError(t, env.bm.UnpinPage(id0, true))
	assert.True(t, p0.IsDirty())

	// Reusing the frame must persist the dirty content first, exactly once.
	writes := env.dm.PagesWritten()
	p1, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	assert.Equal(t, writes+1, env.dm.PagesWritten(), "dirty victim is written back once")
	assert.False(t, p1.IsDirty())

	stored := disk.NewPage()
	require.NoError(t, env.dm.ReadPage(id0.Fd, id0.PageNo, stored))
	got, err := stored.GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "before eviction", got, "write-back must land at the old identity")

	// The frame is now clean; reusing it again must not write.
	require.NoError(t, env.bm.UnpinPage(p1.ID(), false))
	_, err = env.bm.FetchPage(id0)
	require.NoError(t, err)
	assert.Equal(t, writes+1, env.dm.PagesWritten(), "clean victim needs no write-back")
}

func TestUnpinGuards(t *testing.T) {
	env := setupTest(t, 2)

	err := env.bm.UnpinPage(disk.NewPageID(env.fd, 7), false)
	assert.ErrorIs(t, err, ErrPageNotResident)

	p, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	require.NoError(t, env.bm.UnpinPage(p.ID(), false))

	// A second unpin must fail instead of driving the count negative.
	err = env.bm.UnpinPage(p.ID(), false)
	assert.ErrorIs(t, err, ErrPageNotPinned)
	assert.Equal(t, 0, p.PinCount())
}

func TestDirtyFlagIsMonotonic(t *testing.T) {
	env := setupTest(t, 2)

	p, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	require.NoError(t, env.bm.UnpinPage(p.ID(), true))
	assert.True(t, p.IsDirty())

	// A later clean unpin must not clear the flag set by an earlier writer.
	_, err = env.bm.FetchPage(p.ID())
	require.NoError(t, err)
	require.NoError(t, env.bm.UnpinPage(p.ID(), false))
	assert.True(t, p.IsDirty(), "only a write-back may clear the dirty flag")
}

func TestDeletePage(t *testing.T) {
	t.Run("PinnedPageIsRefused", func(t *testing.T) {
		env := setupTest(t, 2)

		p, err := env.bm.NewPage(env.fd)
		require.NoError(t, err)

		err = env.bm.DeletePage(p.ID())
		assert.ErrorIs(t, err, ErrPagePinned)

		// The page must still be resident and untouched.
		reads := env.dm.PagesRead()
		again, err := env.bm.FetchPage(p.ID())
		require.NoError(t, err)
		assert.Same(t, p, again)
		assert.Equal(t, 2, again.PinCount())
		assert.Equal(t, reads, env.dm.PagesRead())

		require.NoError(t, env.bm.UnpinPage(p.ID(), false))
		require.NoError(t, env.bm.UnpinPage(p.ID(), false))
	})

	t.Run("NonResidentSucceedsTrivially", func(t *testing.T) {
		env := setupTest(t, 2)

		available := env.bm.Available()
		assert.NoError(t, env.bm.DeletePage(disk.NewPageID(9, 9)))
		assert.Equal(t, available, env.bm.Available(), "no state change")
		assert.Equal(t, 0, env.dm.PagesWritten())
	})

	t.Run("WritesBackAndFreesFrame", func(t *testing.T) {
		env := setupTest(t, 2)

		p, err := env.bm.NewPage(env.fd)
		require.NoError(t, err)
		id := p.ID()
		require.NoError(t, p.Contents().SetString(0, "kept on disk"))
		require.NoError(t, env.bm.UnpinPage(id, true))

		writes := env.dm.PagesWritten()
		require.NoError(t, env.bm.DeletePage(id))
		assert.Equal(t, writes+1, env.dm.PagesWritten(), "dirty content is flushed before release")
		assert.False(t, p.ID().Valid(), "freed frame holds no identity")

		// The page left the pool but not the disk.
		reads := env.dm.PagesRead()
		again, err := env.bm.FetchPage(id)
		require.NoError(t, err)
		assert.Equal(t, reads+1, env.dm.PagesRead(), "deleted page must be re-read from disk")
		got, err := again.Contents().GetString(0)
		require.NoError(t, err)
		assert.Equal(t, "kept on disk", got)
	})
}

func TestFreeListPreferredOverVictim(t *testing.T) {
	env := setupTest(t, 2)
	spy := &spyReplacer{LRUReplacer: NewLRUReplacer()}
	bm := NewManagerWithReplacer(env.dm, 2, spy)

	p0, err := bm.NewPage(env.fd)
	require.NoError(t, err)
	p1, err := bm.NewPage(env.fd)
	require.NoError(t, err)
	require.NoError(t, bm.UnpinPage(p0.ID(), false))
	require.NoError(t, bm.UnpinPage(p1.ID(), false))
	assert.Equal(t, 0, spy.victimCalls, "free-list frames need no policy decision")

	require.NoError(t, bm.DeletePage(p0.ID()))

	// The freed frame must satisfy the next acquisition without consulting
	// the policy, even though an unpinned victim exists.
	_, err = bm.NewPage(env.fd)
	require.NoError(t, err)
	assert.Equal(t, 0, spy.victimCalls)

	// With the free list drained the policy is asked again.
	_, err = bm.NewPage(env.fd)
	require.NoError(t, err)
	assert.Equal(t, 1, spy.victimCalls)
}

func TestFlushPage(t *testing.T) {
	t.Run("Idempotent", func(t *testing.T) {
		env := setupTest(t, 2)

		p, err := env.bm.NewPage(env.fd)
		require.NoError(t, err)
		id := p.ID()
		require.NoError(t, p.Contents().SetString(0, "flushed twice"))
		require.NoError(t, env.bm.UnpinPage(id, true))

		writes := env.dm.PagesWritten()
		require.NoError(t, env.bm.FlushPage(id))
		assert.False(t, p.IsDirty())

		// Flushing again always writes, even though the page is clean.
		require.NoError(t, env.bm.FlushPage(id))
		assert.False(t, p.IsDirty())
		assert.Equal(t, writes+2, env.dm.PagesWritten())

		stored := disk.NewPage()
		require.NoError(t, env.dm.ReadPage(id.Fd, id.PageNo, stored))
		got, err := stored.GetString(0)
		require.NoError(t, err)
		assert.Equal(t, "flushed twice", got)
	})

	t.Run("InvalidSentinelAlwaysFails", func(t *testing.T) {
		env := setupTest(t, 2)

		err := env.bm.FlushPage(disk.NewPageID(env.fd, disk.InvalidPageNo))
		assert.ErrorIs(t, err, ErrInvalidPageID)
	})

	t.Run("NotResidentFails", func(t *testing.T) {
		env := setupTest(t, 2)

		err := env.bm.FlushPage(disk.NewPageID(env.fd, 42))
		assert.ErrorIs(t, err, ErrPageNotResident)
	})
}

func TestFlushAllPages(t *testing.T) {
	env := setupTest(t, 4)

	pages := make([]*Page, 3)
	for i := range pages {
		p, err := env.bm.NewPage(env.fd)
		require.NoError(t, err)
		require.NoError(t, p.Contents().SetString(0, "page content"))
		require.NoError(t, env.bm.UnpinPage(p.ID(), true))
		pages[i] = p
	}

	require.NoError(t, env.bm.FlushAllPages())
	assert.Equal(t, 3, env.dm.PagesWritten())
	for _, p := range pages {
		assert.False(t, p.IsDirty())
	}
}

func TestAvailableTracksPins(t *testing.T) {
	env := setupTest(t, 3)
	assert.Equal(t, 3, env.bm.Available())

	p, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	assert.Equal(t, 2, env.bm.Available())

	// A second pin on the same page does not consume another frame.
	_, err = env.bm.FetchPage(p.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, env.bm.Available())

	require.NoError(t, env.bm.UnpinPage(p.ID(), false))
	assert.Equal(t, 2, env.bm.Available(), "page is still pinned once")
	require.NoError(t, env.bm.UnpinPage(p.ID(), false))
	assert.Equal(t, 3, env.bm.Available())
}

func TestEvictionPicksLeastRecentlyUnpinned(t *testing.T) {
	env := setupTest(t, 2)

	pa, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	pb, err := env.bm.NewPage(env.fd)
	require.NoError(t, err)
	idA, idB := pa.ID(), pb.ID()

	require.NoError(t, env.bm.UnpinPage(idA, false))
	require.NoError(t, env.bm.UnpinPage(idB, false))

	// A was unpinned first, so the next allocation must evict A and leave B
	// resident.
	_, err = env.bm.NewPage(env.fd)
	require.NoError(t, err)

	reads := env.dm.PagesRead()
	_, err = env.bm.FetchPage(idB)
	require.NoError(t, err)
	assert.Equal(t, reads, env.dm.PagesRead(), "B must still be resident")
}

func TestConcurrentFetchUnpin(t *testing.T) {
	env := setupTest(t, 4)

	ids := make([]disk.PageID, 4)
	for i := range ids {
		p, err := env.bm.NewPage(env.fd)
		require.NoError(t, err)
		ids[i] = p.ID()
		require.NoError(t, env.bm.UnpinPage(p.ID(), false))
	}

	numGoroutines := 8
	numOperations := 200
	var wg sync.WaitGroup
	for g := 0; g < numGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < numOperations; i++ {
				id := ids[(g+i)%len(ids)]
				p, err := env.bm.FetchPage(id)
				assert.NoError(t, err)
				assert.Equal(t, id, p.ID())
				assert.NoError(t, env.bm.UnpinPage(id, false))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 4, env.bm.Available(), "all pins must be balanced")
}

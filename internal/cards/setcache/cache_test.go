package setcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/cards/source"
	"github.com/ramonehamilton/swu-binder/internal/events"
)

type fakeSource struct {
	mu      sync.Mutex
	files   map[string]string
	fail    map[string]error
	calls   map[string]int
	release chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		files: map[string]string{
			"SOR": `[{"Name":"Ahsoka Tano","Number":3,"Type":"Unit"},{"Name":"Ahsoka Tano","Number":150,"Type":"Unit"}]`,
			"SHD": `{"data":[{"Name":"HK-47","Number":47,"Type":"Unit"}]}`,
			"BAD": `not json`,
		},
		fail:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeSource) Manifest(ctx context.Context) (*source.Manifest, error) {
	return &source.Manifest{Sets: []source.SetEntry{
		{Key: "SOR", File: "sor.json"},
		{Key: "SHD", File: "shd.json"},
		{Key: "BAD", File: "bad.json"},
	}}, nil
}

func (f *fakeSource) SetFile(ctx context.Context, entry source.SetEntry) ([]byte, error) {
	f.mu.Lock()
	f.calls[entry.Key]++
	err := f.fail[entry.Key]
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return []byte(f.files[entry.Key]), nil
}

func (f *fakeSource) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func TestCache_GetBuildsOnce(t *testing.T) {
	src := newFakeSource()
	cache := New(Config{Source: src})
	ctx := context.Background()

	cat, err := cache.Get(ctx, "sor")
	require.NoError(t, err)
	assert.Equal(t, "SOR", cat.SetKey)
	assert.Equal(t, []int{3, 150}, cat.BaseToAll[3])

	again, err := cache.Get(ctx, "SOR")
	require.NoError(t, err)
	assert.Same(t, cat, again)
	assert.Equal(t, 1, src.callCount("SOR"))
}

func TestCache_ConcurrentRequestsCoalesce(t *testing.T) {
	src := newFakeSource()
	src.release = make(chan struct{})
	cache := New(Config{Source: src})
	ctx := context.Background()

	// Load the manifest first so every goroutine goes straight to the build.
	_, err := cache.Manifest(ctx)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(ctx, "SOR"); err == nil {
				succeeded.Add(1)
			}
		}()
	}

	// Give every caller time to join the in-flight build before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(callers), succeeded.Load())
	assert.Equal(t, 1, src.callCount("SOR"))
}

func TestCache_FailureIsNotCached(t *testing.T) {
	src := newFakeSource()
	src.fail["SHD"] = errors.New("network down")

	var failed []string
	dispatcher := events.NewDispatcher()
	dispatcher.Register(events.NewFuncObserver("test", func(e events.Event) error {
		data, _ := events.DataAs[events.CatalogFailedEvent](e)
		failed = append(failed, data.SetKey)
		return nil
	}, events.CatalogFailed))

	cache := New(Config{Source: src, Publisher: dispatcher})
	ctx := context.Background()

	_, err := cache.Get(ctx, "SHD")
	require.Error(t, err)
	_, cached := cache.Peek("SHD")
	assert.False(t, cached)
	assert.Equal(t, []string{"SHD"}, failed)

	delete(src.fail, "SHD")
	cat, err := cache.Get(ctx, "SHD")
	require.NoError(t, err)
	assert.True(t, cat.IsBase(47))
	assert.Equal(t, 2, src.callCount("SHD"))
}

func TestCache_MalformedAndUnknown(t *testing.T) {
	cache := New(Config{Source: newFakeSource()})
	ctx := context.Background()

	_, err := cache.Get(ctx, "BAD")
	assert.ErrorIs(t, err, cards.ErrMalformedSetFile)

	_, err = cache.Get(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSet)
}

func TestCache_PrewarmAndLoaded(t *testing.T) {
	cache := New(Config{Source: newFakeSource()})

	err := cache.Prewarm(context.Background())
	require.Error(t, err, "BAD set should report an error")

	loaded := cache.Loaded()
	require.Len(t, loaded, 2)
	assert.Equal(t, "SHD", loaded[0].SetKey)
	assert.Equal(t, "SOR", loaded[1].SetKey)
}

func TestCache_SeedWithoutSource(t *testing.T) {
	cache := New(Config{})
	cat := cards.BuildCatalog("TWI", []cards.Card{{Name: "Clone", Number: 1}})

	assert.True(t, cache.Seed(cat))
	assert.False(t, cache.Seed(cat))

	got, err := cache.Get(context.Background(), "twi")
	require.NoError(t, err)
	assert.Same(t, cat, got)

	_, err = cache.Get(context.Background(), "SOR")
	assert.Error(t, err)
}

package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/models"
)

type countingFetcher struct {
	calls  atomic.Int32
	record models.ModelRecord
	err    error
}

func (f *countingFetcher) Fetch(context.Context) (models.ModelRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.record.Clone(), nil
}

func testRecord() models.ModelRecord {
	return models.ModelRecord{"m1": {ContextWindow: 1000, MaxTokens: 100}}
}

func TestGetModelsCachesWithinTTL(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	fetcher := &countingFetcher{record: testRecord()}
	cache := New(Options{TTL: time.Minute})
	cache.now = func() time.Time { return clock }
	cache.Register("deepinfra", fetcher)

	ctx := context.Background()
	require.Equal(t, testRecord(), cache.GetModels(ctx, "deepinfra"))
	require.Equal(t, testRecord(), cache.GetModels(ctx, "DeepInfra"))
	require.EqualValues(t, 1, fetcher.calls.Load())

	clock = clock.Add(2 * time.Minute)
	cache.GetModels(ctx, "deepinfra")
	require.EqualValues(t, 2, fetcher.calls.Load())
}

func TestGetModelsZeroTTLFetchesEveryCall(t *testing.T) {
	fetcher := &countingFetcher{record: testRecord()}
	cache := New(Options{})
	cache.Register("deepinfra", fetcher)

	cache.GetModels(context.Background(), "deepinfra")
	cache.GetModels(context.Background(), "deepinfra")
	require.EqualValues(t, 2, fetcher.calls.Load())
}

func TestGetModelsFailsSoft(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("dial tcp: connection refused")}
	cache := New(Options{})
	cache.Register("deepinfra", fetcher)

	record := cache.GetModels(context.Background(), "deepinfra")
	require.NotNil(t, record)
	require.Empty(t, record)

	require.Empty(t, cache.GetModels(context.Background(), "unknown"))
}

func TestGetModelsServesStaleOnError(t *testing.T) {
	fetcher := &countingFetcher{record: testRecord()}
	cache := New(Options{})
	cache.Register("deepinfra", fetcher)

	require.Len(t, cache.GetModels(context.Background(), "deepinfra"), 1)
	fetcher.err = errors.New("502 bad gateway")
	require.Equal(t, testRecord(), cache.GetModels(context.Background(), "deepinfra"))

	_, err := cache.Refresh(context.Background(), "deepinfra")
	require.Error(t, err)
}

func TestGetModelsReturnsCopies(t *testing.T) {
	cache := New(Options{TTL: time.Minute})
	cache.Register("deepinfra", &countingFetcher{record: testRecord()})

	first := cache.GetModels(context.Background(), "deepinfra")
	first["injected"] = models.ModelInfo{}
	require.NotContains(t, cache.GetModels(context.Background(), "deepinfra"), "injected")
}

func TestGetModelsCoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	cache := New(Options{TTL: time.Minute})
	cache.Register("openrouter", FetcherFunc(func(context.Context) (models.ModelRecord, error) {
		calls.Add(1)
		<-release
		return testRecord(), nil
	}))

	sizes := make([]int, 8)
	var wg sync.WaitGroup
	for i := range sizes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sizes[i] = len(cache.GetModels(context.Background(), "openrouter"))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	require.EqualValues(t, 1, calls.Load())
	for _, n := range sizes {
		require.Equal(t, 1, n)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	fetcher := &countingFetcher{record: testRecord()}
	cache := New(Options{TTL: time.Hour})
	cache.Register("deepinfra", fetcher)

	cache.GetModels(context.Background(), "deepinfra")
	cache.Invalidate("deepinfra")
	cache.GetModels(context.Background(), "deepinfra")
	require.EqualValues(t, 2, fetcher.calls.Load())
}

func TestRedisStoreSharesRecords(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "")

	primary := New(Options{TTL: time.Minute, Store: store})
	primary.Register("deepinfra", &countingFetcher{record: testRecord()})
	primary.GetModels(context.Background(), "deepinfra")
	require.True(t, mr.Exists("catalog:deepinfra"))

	replicaFetcher := &countingFetcher{record: models.ModelRecord{}}
	replica := New(Options{TTL: time.Minute, Store: store})
	replica.Register("deepinfra", replicaFetcher)
	require.Equal(t, testRecord(), replica.GetModels(context.Background(), "deepinfra"))
	require.EqualValues(t, 0, replicaFetcher.calls.Load())

	replica.Invalidate("deepinfra")
	require.False(t, mr.Exists("catalog:deepinfra"))
}

func TestDefaultsAndSlugs(t *testing.T) {
	def, ok := DefaultFor("deep_infra")
	require.True(t, ok)
	require.Equal(t, "meta-llama/Meta-Llama-3.1-70B-Instruct", def.ModelID)
	require.Equal(t, 8192, def.Info.MaxTokens)
	require.Equal(t, 128_000, def.Info.ContextWindow)
	require.Equal(t, 0.52, def.Info.InputPrice)
	require.Equal(t, 0.75, def.Info.OutputPrice)

	require.Equal(t, "openai-compatible", NormalizeProviderSlug(" OpenAI_Compatible "))
	require.Contains(t, StaticModels("bedrock"), defaultID(t, "bedrock"))
}

func defaultID(t *testing.T, provider string) string {
	t.Helper()
	def, ok := DefaultFor(provider)
	require.True(t, ok)
	return def.ModelID
}

package quota

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkcut/linkcut/internal/cache"
	"github.com/linkcut/linkcut/internal/model"
	"github.com/linkcut/linkcut/internal/repository"
)

type fakeSubs struct {
	sub          *model.Subscription
	plan         *model.Plan
	free         *model.Plan
	createdCount int64
	countCalls   int
}

func (f *fakeSubs) GetActiveSubscription(_ context.Context, _ string) (*model.Subscription, *model.Plan, error) {
	if f.sub == nil {
		return nil, nil, repository.ErrSubscriptionNotFound
	}
	return f.sub, f.plan, nil
}

func (f *fakeSubs) GetPlanByName(_ context.Context, name string) (*model.Plan, error) {
	if f.free == nil {
		return nil, repository.ErrPlanNotFound
	}
	return f.free, nil
}

func (f *fakeSubs) CountLinksCreatedSince(_ context.Context, _ string, _ time.Time) (int64, error) {
	f.countCalls++
	return f.createdCount, nil
}

// fakeCounter mimics the Redis counter, including its answer for a key
// that does not exist yet.
type fakeCounter struct {
	mu   sync.Mutex
	used map[string]int64
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{used: make(map[string]int64)}
}

func (f *fakeCounter) ReserveQuotaSlot(_ context.Context, ownerID, periodKey string, ceiling int64, _ time.Duration) (*cache.QuotaResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ownerID + ":" + periodKey
	used, ok := f.used[key]
	if !ok {
		return nil, cache.ErrQuotaCounterMissing
	}
	if used >= ceiling {
		return &cache.QuotaResult{Allowed: false, Used: used}, nil
	}
	f.used[key]++
	return &cache.QuotaResult{Allowed: true, Used: f.used[key], Remaining: ceiling - f.used[key]}, nil
}

func (f *fakeCounter) SeedQuotaCounter(_ context.Context, ownerID, periodKey string, used int64, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ownerID + ":" + periodKey
	if _, ok := f.used[key]; !ok {
		f.used[key] = used
	}
	return nil
}

func (f *fakeCounter) ReleaseQuotaSlot(_ context.Context, ownerID, periodKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := ownerID + ":" + periodKey
	if f.used[key] > 0 {
		f.used[key]--
	}
	return nil
}

// flush drops every counter, as a Redis FLUSHALL would.
func (f *fakeCounter) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used = make(map[string]int64)
}

func newTestEnforcer(subs *fakeSubs, counter *fakeCounter) *Enforcer {
	return New(subs, counter, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func limitedPlan(limit int) *model.Plan {
	return &model.Plan{ID: "plan-1", Name: "pro", LinkLimit: limit, DurationDays: 30}
}

func activeSub(started time.Time) *model.Subscription {
	return &model.Subscription{ID: "sub-1", UserID: "user-1", PlanID: "plan-1", StartedAt: started}
}

func TestEnforcer_AllowsUnderCeiling(t *testing.T) {
	e := newTestEnforcer(
		&fakeSubs{sub: activeSub(time.Now().Add(-time.Hour)), plan: limitedPlan(3)},
		newFakeCounter(),
	)

	for i := 0; i < 3; i++ {
		decision, err := e.CheckAndReserve(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "reservation %d", i)
	}

	decision, err := e.CheckAndReserve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonQuotaExceeded, decision.Reason)
}

func TestEnforcer_UnlimitedPlanNeverDenies(t *testing.T) {
	counter := newFakeCounter()
	e := newTestEnforcer(
		&fakeSubs{sub: activeSub(time.Now().Add(-time.Hour)), plan: limitedPlan(0)},
		counter,
	)

	for i := 0; i < 100; i++ {
		decision, err := e.CheckAndReserve(context.Background(), "user-1")
		require.NoError(t, err)
		require.True(t, decision.Allowed)
		assert.Equal(t, int64(-1), decision.Remaining)
	}

	// Unlimited plans never touch the counter.
	assert.Empty(t, counter.used)
}

func TestEnforcer_NoSubscriptionFallsBackToFree(t *testing.T) {
	free := &model.Plan{ID: "plan-free", Name: model.PlanNameFree, LinkLimit: 2, DurationDays: 30}
	e := newTestEnforcer(&fakeSubs{free: free}, newFakeCounter())

	decision, err := e.CheckAndReserve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(1), decision.Remaining)
}

func TestEnforcer_LapsedSubscriptionDenied(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	sub := activeSub(time.Now().AddDate(0, -2, 0))
	sub.ExpiresAt = &expired

	e := newTestEnforcer(&fakeSubs{sub: sub, plan: limitedPlan(10)}, newFakeCounter())

	decision, err := e.CheckAndReserve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonSubscriptionLapsed, decision.Reason)
}

func TestEnforcer_ReleaseReturnsSlot(t *testing.T) {
	e := newTestEnforcer(
		&fakeSubs{sub: activeSub(time.Now().Add(-time.Hour)), plan: limitedPlan(1)},
		newFakeCounter(),
	)
	ctx := context.Background()

	decision, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	denied, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, denied.Allowed)

	require.NoError(t, e.Release(ctx, "user-1", decision.PeriodKey))

	again, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

func TestEnforcer_PeriodRollResetsUsage(t *testing.T) {
	started := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e := newTestEnforcer(
		&fakeSubs{sub: activeSub(started), plan: limitedPlan(1)},
		newFakeCounter(),
	)
	ctx := context.Background()

	e.now = func() time.Time { return started.Add(24 * time.Hour) }
	first, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	denied, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, denied.Allowed)

	// 31 days in: the 30-day period has rolled, usage starts fresh.
	e.now = func() time.Time { return started.Add(31 * 24 * time.Hour) }
	second, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.NotEqual(t, first.PeriodKey, second.PeriodKey)
}

func TestEnforcer_FlushedCounterReseedsFromStore(t *testing.T) {
	subs := &fakeSubs{sub: activeSub(time.Now().Add(-time.Hour)), plan: limitedPlan(3)}
	counter := newFakeCounter()
	e := newTestEnforcer(subs, counter)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		decision, err := e.CheckAndReserve(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	// Redis loses everything mid-period. The durable store still holds
	// the two created links, so usage must resume at two, not zero.
	counter.flush()
	subs.createdCount = 2

	decision, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(0), decision.Remaining)

	denied, err := e.CheckAndReserve(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, denied.Allowed)
	assert.Equal(t, ReasonQuotaExceeded, denied.Reason)
}

func TestEnforcer_SeedAtCeilingDeniesImmediately(t *testing.T) {
	subs := &fakeSubs{sub: activeSub(time.Now().Add(-time.Hour)), plan: limitedPlan(3), createdCount: 3}
	e := newTestEnforcer(subs, newFakeCounter())

	decision, err := e.CheckAndReserve(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonQuotaExceeded, decision.Reason)
	assert.Equal(t, 1, subs.countCalls)
}

func TestEnforcer_ConcurrentSingleSlot(t *testing.T) {
	e := newTestEnforcer(
		&fakeSubs{sub: activeSub(time.Now().Add(-time.Hour)), plan: limitedPlan(1)},
		newFakeCounter(),
	)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := e.CheckAndReserve(context.Background(), "user-1")
			if err != nil {
				t.Errorf("CheckAndReserve failed: %v", err)
				return
			}
			results <- decision.Allowed
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for allowed := range results {
		if allowed {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent creation may claim the last slot")
}

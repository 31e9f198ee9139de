package scheduler

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/logger"
)

type memorySortedSet struct {
	scores map[string]float64
}

func newMemorySortedSet() *memorySortedSet {
	return &memorySortedSet{scores: map[string]float64{}}
}

func (m *memorySortedSet) ZAdd(ctx context.Context, key string, members ...redis.Z) error {
	for _, member := range members {
		m.scores[member.Member.(string)] = member.Score
	}
	return nil
}

func (m *memorySortedSet) ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) ([]string, error) {
	max, err := strconv.ParseFloat(opt.Max, 64)
	if err != nil {
		return nil, err
	}
	var out []string
	for member, score := range m.scores {
		if score <= max {
			out = append(out, member)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.scores[out[i]] < m.scores[out[j]] })
	if opt.Count > 0 && int64(len(out)) > opt.Count {
		out = out[:opt.Count]
	}
	return out, nil
}

func (m *memorySortedSet) ZRem(ctx context.Context, key string, members ...any) (int64, error) {
	var removed int64
	for _, member := range members {
		name := member.(string)
		if _, ok := m.scores[name]; ok {
			delete(m.scores, name)
			removed++
		}
	}
	return removed, nil
}

func (m *memorySortedSet) ZCard(ctx context.Context, key string) (int64, error) {
	return int64(len(m.scores)), nil
}

func (m *memorySortedSet) DelayedQueueKey(name string) string {
	return "ss:delayed:" + name
}

type fakeAdvancer struct {
	advanced map[uuid.UUID]int
	stale    map[uuid.UUID]bool
	err      error
}

func newFakeAdvancer() *fakeAdvancer {
	return &fakeAdvancer{advanced: map[uuid.UUID]int{}, stale: map[uuid.UUID]bool{}}
}

func (f *fakeAdvancer) AdvanceToInTransit(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.stale[orderID] {
		return false, nil
	}
	f.advanced[orderID]++
	// The conditional status update only wins once.
	f.stale[orderID] = true
	return true, nil
}

func newTestQueue(t *testing.T) (*Queue, *memorySortedSet) {
	t.Helper()

	store := newMemorySortedSet()
	queue, err := NewQueue(store)
	if err != nil {
		t.Fatalf("construct queue: %v", err)
	}
	return queue, store
}

func newTestRunner(t *testing.T, queue *Queue, advancer orderAdvancer) *Runner {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	runner, err := NewRunner(RunnerParams{
		Queue:  queue,
		Orders: advancer,
		Logger: logg,
		Cfg:    config.DispatchConfig{SchedulerPollEvery: time.Second, SchedulerBatchSize: 10},
	})
	if err != nil {
		t.Fatalf("construct runner: %v", err)
	}
	return runner
}

func TestQueueDueHonorsFireTime(t *testing.T) {
	queue, _ := newTestQueue(t)
	ctx := context.Background()

	orderID := uuid.New()
	if err := queue.ScheduleHandover(ctx, orderID, time.Hour); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	due, err := queue.Due(ctx, time.Now(), 10)
	if err != nil {
		t.Fatalf("due failed: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("entry fired before its delay: %v", due)
	}

	due, err = queue.Due(ctx, time.Now().Add(2*time.Hour), 10)
	if err != nil {
		t.Fatalf("due failed: %v", err)
	}
	if len(due) != 1 || due[0] != orderID {
		t.Fatalf("expected the order due, got %v", due)
	}
}

func TestQueueDropsUnparseableMembers(t *testing.T) {
	queue, store := newTestQueue(t)
	ctx := context.Background()

	store.scores["not-a-uuid"] = 1
	orderID := uuid.New()
	if err := queue.ScheduleHandover(ctx, orderID, 0); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	due, err := queue.Due(ctx, time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatalf("due failed: %v", err)
	}
	if len(due) != 1 || due[0] != orderID {
		t.Fatalf("expected only the valid order, got %v", due)
	}
	if _, ok := store.scores["not-a-uuid"]; ok {
		t.Fatal("bad member must be purged from the queue")
	}
}

func TestRunnerAdvancesDueOrders(t *testing.T) {
	queue, store := newTestQueue(t)
	advancer := newFakeAdvancer()
	runner := newTestRunner(t, queue, advancer)
	ctx := context.Background()

	orderID := uuid.New()
	if err := queue.ScheduleHandover(ctx, orderID, -time.Second); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	runner.tick(ctx)

	if advancer.advanced[orderID] != 1 {
		t.Fatalf("expected one advance, got %d", advancer.advanced[orderID])
	}
	if len(store.scores) != 0 {
		t.Fatalf("entry not acked: %v", store.scores)
	}
}

func TestRunnerDuplicateFireIsNoop(t *testing.T) {
	queue, _ := newTestQueue(t)
	advancer := newFakeAdvancer()
	runner := newTestRunner(t, queue, advancer)
	ctx := context.Background()

	orderID := uuid.New()
	if err := queue.ScheduleHandover(ctx, orderID, -time.Second); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	runner.tick(ctx)

	// Simulate the timer firing again for an order that already moved on.
	if err := queue.ScheduleHandover(ctx, orderID, -time.Second); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	runner.tick(ctx)

	if advancer.advanced[orderID] != 1 {
		t.Fatalf("expected exactly one transition, got %d", advancer.advanced[orderID])
	}
}

func TestRunnerLeavesEntryOnAdvanceError(t *testing.T) {
	queue, store := newTestQueue(t)
	advancer := newFakeAdvancer()
	advancer.err = errors.New("db down")
	runner := newTestRunner(t, queue, advancer)
	ctx := context.Background()

	orderID := uuid.New()
	if err := queue.ScheduleHandover(ctx, orderID, -time.Second); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	runner.tick(ctx)

	if len(store.scores) != 1 {
		t.Fatal("entry must stay queued for the next poll")
	}
}

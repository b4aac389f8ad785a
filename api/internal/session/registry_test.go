package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"barchart-coach/api/internal/coach"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(t *testing.T) (*Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)}
	return NewRegistry(WithClock(clock.Now)), clock
}

func TestOpenCreatesFreshSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	s := r.Open("", "fr")
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "fr-FR", s.Locale)
	assert.Equal(t, coach.StepFraming, s.State.Step)

	again := r.Open(s.ID, "en")
	assert.Equal(t, "fr-FR", again.Locale, "locale is fixed at creation")
	assert.Equal(t, 1, r.Len())
}

func TestApplyStoresState(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := r.Open("tg:42", "en").ID
	assert.Equal(t, "tg:42", id)

	s, out, err := r.Apply(id, coach.SetFraming{Goal: "Compare fruits", Variable: "Fruit"})
	require.NoError(t, err)
	assert.Equal(t, coach.OutcomeSaved, out.Kind)
	assert.Equal(t, "Compare fruits", s.State.Goal)

	s, out, err = r.Apply(id, coach.Validate{})
	require.NoError(t, err)
	assert.Equal(t, coach.OutcomeAdvanced, out.Kind)
	assert.Equal(t, coach.StepData, s.State.Step)

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, coach.StepData, got.State.Step)
}

func TestApplyUsesSessionLocale(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := r.Open("", "fr-FR").ID

	_, out, err := r.Apply(id, coach.AskQuestion{Text: "trace le graphique"})
	require.NoError(t, err)
	assert.Equal(t, coach.OutcomeRefused, out.Kind)
	assert.Contains(t, out.Message, "Je ne peux pas produire le diagramme")

	_, err = r.SetLocale(id, "en")
	require.NoError(t, err)
	_, out, err = r.Apply(id, coach.AskQuestion{Text: "trace le graphique"})
	require.NoError(t, err)
	assert.Contains(t, out.Message, "I can't produce the chart")
}

func TestSnapshotsAreCopies(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := r.Open("", "en").ID
	s, _, err := r.Apply(id, coach.SetFraming{Goal: "Q", Variable: "V"})
	require.NoError(t, err)

	s.State.Checklist[coach.CheckTitle] = true
	s.State.Goal = "changed"

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Q", got.State.Goal)
	assert.Empty(t, got.State.Checklist)
}

func TestUnknownSession(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = r.Apply("nope", coach.Validate{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.SetLocale("nope", "fr")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, r.Drop("nope"))
}

func TestDrop(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := r.Open("", "en").ID

	assert.True(t, r.Drop(id))
	assert.Zero(t, r.Len())
}

func TestSweepDropsIdleSessions(t *testing.T) {
	r, clock := newTestRegistry(t)
	old := r.Open("old", "en").ID
	clock.Advance(50 * time.Minute)
	fresh := r.Open("fresh", "en").ID
	clock.Advance(20 * time.Minute)

	assert.Equal(t, 1, r.Sweep(time.Hour))
	_, err := r.Get(old)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(fresh)
	assert.NoError(t, err)
}

func TestCoachIsCachedPerLocale(t *testing.T) {
	r := NewRegistry(WithCoachOptions(coach.WithExtraBannedPhrases("excel chart")))

	assert.Same(t, r.Coach("fr"), r.Coach("fr-CA"))
	assert.NotSame(t, r.Coach("fr"), r.Coach("en"))
	_, bad := r.Coach("en").CheckGuardrail("build my excel chart")
	assert.True(t, bad)
}

func TestConcurrentSessions(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Open("", "en").ID
			for j := 0; j < 5; j++ {
				_, _, err := r.Apply(id, coach.RequestHint{})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, r.Len())
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRegistry()
	r.Open("a", "en")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunSweeper(ctx, time.Millisecond, -time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

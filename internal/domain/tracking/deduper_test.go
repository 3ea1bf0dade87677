package tracking

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingSink) sink(event string, _ Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestFireOnce_EmitsOncePerSubject(t *testing.T) {
	recorder := &recordingSink{}
	sut := NewDeduper(quietLogger())

	fired := sut.FireOnce(EventViewContent, "T1", Params{}, recorder.sink)
	assert.True(t, fired)

	fired = sut.FireOnce(EventViewContent, "T1", Params{}, recorder.sink)
	assert.False(t, fired)

	assert.Equal(t, 1, recorder.count())
}

func TestFireOnce_ResetStartsNewLifetime(t *testing.T) {
	recorder := &recordingSink{}
	sut := NewDeduper(quietLogger())

	sut.FireOnce(EventViewContent, "T1", Params{}, recorder.sink)
	sut.Reset()

	fired := sut.FireOnce(EventViewContent, "T1", Params{}, recorder.sink)
	assert.True(t, fired)
	assert.Equal(t, 2, recorder.count())
}

func TestFireOnce_KindsAndSubjectsAreIndependent(t *testing.T) {
	recorder := &recordingSink{}
	sut := NewDeduper(quietLogger())

	assert.True(t, sut.FireOnce(EventViewContent, "T1", Params{}, recorder.sink))
	assert.True(t, sut.FireOnce(EventViewContent, "T2", Params{}, recorder.sink))
	assert.True(t, sut.FireOnce(EventAddToCart, "T1", Params{}, recorder.sink))

	assert.Equal(t, 3, recorder.count())
}

func TestFireOnce_RedundantObserversShareOneEmit(t *testing.T) {
	recorder := &recordingSink{}
	sut := NewDeduper(quietLogger())

	// Two widgets observing the same product race to report the same view
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sut.FireOnce(EventViewContent, "T1", Params{}, recorder.sink)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, recorder.count())
}

func TestFireOnce_NilSinkStillMarksFired(t *testing.T) {
	sut := NewDeduper(quietLogger())

	assert.True(t, sut.FireOnce(EventViewContent, "T1", Params{}, nil))
	assert.False(t, sut.FireOnce(EventViewContent, "T1", Params{}, nil))
}

func TestFireOnce_SinkErrorIsAbsorbed(t *testing.T) {
	recorder := &recordingSink{err: errors.New("pixel rejected the event")}
	sut := NewDeduper(quietLogger())

	assert.True(t, sut.FireOnce(EventPurchase, "order-1", Params{}, recorder.sink))

	// At-most-once holds even though the emit failed
	assert.False(t, sut.FireOnce(EventPurchase, "order-1", Params{}, recorder.sink))
}

func TestFireOnce_SinkPanicIsAbsorbed(t *testing.T) {
	sut := NewDeduper(quietLogger())

	panicking := func(string, Params) error { panic("pixel script exploded") }

	require.NotPanics(t, func() {
		sut.FireOnce(EventAddToCart, "T1", Params{}, panicking)
	})
	assert.False(t, sut.FireOnce(EventAddToCart, "T1", Params{}, panicking))
}

func TestProductParams_ConvertsMinorUnits(t *testing.T) {
	got := ProductParams(catalog.Product{
		ID: "T1", Name: "Darjeeling 100g", Price: 499, Currency: "INR",
	})

	assert.Equal(t, []string{"T1"}, got.ContentIDs)
	assert.Equal(t, "Darjeeling 100g", got.ContentName)
	assert.Equal(t, "product", got.ContentType)
	assert.InDelta(t, 4.99, got.Value, 0.001)
	assert.Equal(t, "INR", got.Currency)
}

func TestCartParams_CopiesProductIDs(t *testing.T) {
	ids := []string{"T1", "T2"}
	got := CartParams(ids, 1297, "INR")

	ids[0] = "mutated"
	assert.Equal(t, []string{"T1", "T2"}, got.ContentIDs)
	assert.InDelta(t, 12.97, got.Value, 0.001)
}

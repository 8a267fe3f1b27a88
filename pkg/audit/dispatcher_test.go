package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherDeliversEntries(t *testing.T) {
	recorder := NewInMemoryRecorder()
	dispatcher := NewDispatcher(recorder, 16)

	actor := uuid.New()
	for i := 0; i < 5; i++ {
		dispatcher.Record(NewEntry(&actor, ActionLogin, "user logged in", Origin{IP: "10.0.0.1"}, nil))
	}
	dispatcher.Close()

	entries, total, err := recorder.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, entries, 5)
	assert.Equal(t, ActionLogin, entries[0].Action)
	assert.Equal(t, "10.0.0.1", entries[0].Origin.IP)
}

type failingRecorder struct {
	mu    sync.Mutex
	calls int
}

func (f *failingRecorder) Append(ctx context.Context, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("sink unavailable")
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	recorder := &failingRecorder{}
	dispatcher := NewDispatcher(recorder, 4)

	dispatcher.Record(NewEntry(nil, ActionFailedLogin, "failed login", Origin{}, nil))
	dispatcher.Close()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, 1, recorder.calls)
}

type blockingRecorder struct {
	release chan struct{}
}

func (b *blockingRecorder) Append(ctx context.Context, entry Entry) error {
	<-b.release
	return nil
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	recorder := &blockingRecorder{release: make(chan struct{})}
	dispatcher := NewDispatcher(recorder, 1)

	// First entry is taken by the worker and blocks; the second fills the
	// buffer; later ones must be dropped without blocking this test.
	for i := 0; i < 10; i++ {
		dispatcher.Record(NewEntry(nil, ActionLogin, "x", Origin{}, nil))
	}
	assert.Greater(t, dispatcher.Dropped(), uint64(0))

	close(recorder.release)
	dispatcher.Close()
}

func TestRedactDetails(t *testing.T) {
	details := map[string]interface{}{
		"password":  "Secret1!",
		"raw_token": "abc",
		"channel":   "email",
	}
	redacted := RedactDetails(details)
	assert.NotContains(t, redacted, "password")
	assert.NotContains(t, redacted, "raw_token")
	assert.Equal(t, "email", redacted["channel"])

	assert.Nil(t, RedactDetails(nil))
}

func TestInMemoryRecorderFiltering(t *testing.T) {
	recorder := NewInMemoryRecorder()
	ctx := context.Background()

	actorA := uuid.New()
	actorB := uuid.New()
	require.NoError(t, recorder.Append(ctx, NewEntry(&actorA, ActionLogin, "a in", Origin{}, nil)))
	require.NoError(t, recorder.Append(ctx, NewEntry(&actorA, ActionLogout, "a out", Origin{}, nil)))
	require.NoError(t, recorder.Append(ctx, NewEntry(&actorB, ActionLogin, "b in", Origin{}, nil)))

	entries, total, err := recorder.List(ctx, Filter{Action: ActionLogin})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "b in", entries[0].Description, "newest first")

	entries, total, err = recorder.List(ctx, Filter{ActorID: &actorA})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	entries, total, err = recorder.List(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, entries, 1)
}

package event_test

import (
	"asyncfs/internal/event"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_Event_Signal_Releases_All_Waiters(t *testing.T) {
	e := event.Create()
	assert.False(t, e.IsSet())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Wait()
		}()
	}

	e.Signal()
	e.Signal() // second signal must not panic
	wg.Wait()
	assert.True(t, e.IsSet())
	e.Wait()
}

func Test_Event_WaitContext(t *testing.T) {
	e := event.Create()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.WaitContext(ctx), context.DeadlineExceeded)

	e.Signal()
	assert.NoError(t, e.WaitContext(context.Background()))

	select {
	case <-e.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

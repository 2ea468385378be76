package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type ctxKey struct{}

func TestCombineContext(t *testing.T) {
	t.Run("SecondCancels", func(t *testing.T) {
		ctx1 := context.WithValue(context.Background(), ctxKey{}, "tab")
		ctx2, cancel2 := context.WithCancel(context.Background())

		combined, cancel := CombineContext(ctx1, ctx2)
		defer cancel()
		assert.Equal(t, "tab", combined.Value(ctxKey{}))

		cancel2()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context not cancelled by second parent")
		}
		assert.NoError(t, ctx1.Err())
	})

	t.Run("FirstCancels", func(t *testing.T) {
		ctx1, cancel1 := context.WithCancel(context.Background())
		combined, cancel := CombineContext(ctx1, context.Background())
		defer cancel()

		cancel1()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

func TestDetach(t *testing.T) {
	parent, cancel := context.WithTimeout(context.WithValue(context.Background(), ctxKey{}, "v"), time.Millisecond)
	cancel()

	d := Detach(parent)
	assert.NoError(t, d.Err())
	assert.Nil(t, d.Done())
	_, ok := d.Deadline()
	assert.False(t, ok)
	assert.Equal(t, "v", d.Value(ctxKey{}))
}

package review

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAll_FailureDoesNotCancelSiblings(t *testing.T) {
	inputs := []int{1, 2, 3, 4}

	outcomes := JoinAll(context.Background(), inputs, 0, func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, errors.New("two is bad")
		}
		time.Sleep(5 * time.Millisecond)
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return n * 10, nil
	})

	require.Len(t, outcomes, 4)
	for i, o := range outcomes {
		assert.Equal(t, inputs[i], o.Input)
	}

	succeeded, failed := Partition(outcomes)
	assert.Len(t, succeeded, 3)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Input)
	assert.EqualError(t, failed[0].Err, "two is bad")
	assert.Equal(t, 40, outcomes[3].Result)
}

func TestJoinAll_RespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	inputs := make([]int, 12)

	JoinAll(context.Background(), inputs, 3, func(context.Context, int) (struct{}, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestJoinAll_Empty(t *testing.T) {
	outcomes := JoinAll(context.Background(), []string(nil), 0, func(context.Context, string) (int, error) {
		t.Fatal("should not be called")
		return 0, nil
	})
	assert.Empty(t, outcomes)
}

package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djordjijeK/taskflow/pkg/core/task"
)

func TestRegisterPipeline_InvalidCronExpr(t *testing.T) {
	cs := NewCronScheduler()
	defer cs.Stop()

	err := cs.RegisterPipeline("bad", "not-a-cron-expr", func() ([]*task.Task, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestRegisterPipeline_NilFactory(t *testing.T) {
	cs := NewCronScheduler()
	defer cs.Stop()

	err := cs.RegisterPipeline("nil-factory", "* * * * * *", nil)
	require.Error(t, err)
}

func TestRegisterPipeline_Duplicate(t *testing.T) {
	cs := NewCronScheduler()
	defer cs.Stop()

	factory := func() ([]*task.Task, error) { return nil, nil }

	require.NoError(t, cs.RegisterPipeline("dup", "0 0 * * * *", factory))
	require.Error(t, cs.RegisterPipeline("dup", "0 0 * * * *", factory))

	assert.Equal(t, []string{"dup"}, cs.RegisteredPipelines())
}

func TestUnregisterPipeline(t *testing.T) {
	cs := NewCronScheduler()
	defer cs.Stop()

	require.Error(t, cs.UnregisterPipeline("ghost"))

	require.NoError(t, cs.RegisterPipeline("p1", "0 0 * * * *", func() ([]*task.Task, error) {
		return nil, nil
	}))
	require.NoError(t, cs.UnregisterPipeline("p1"))
	assert.Empty(t, cs.RegisteredPipelines())
}

func TestTriggerPipeline_RunsFreshTasks(t *testing.T) {
	cs := NewCronScheduler()
	defer cs.Stop()

	var runs int32
	factory := func() ([]*task.Task, error) {
		// 每次触发构建全新Task实例
		return []*task.Task{
			task.NewTask(func(ctx context.Context) (interface{}, error) {
				atomic.AddInt32(&runs, 1)
				return nil, nil
			}, task.WithID("tick")),
		}, nil
	}

	// 秒级Cron表达式：每秒触发
	require.NoError(t, cs.RegisterPipeline("every-second", "* * * * * *", factory))
	cs.Start()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 2
	}, 5*time.Second, 100*time.Millisecond, "Pipeline应该被多次触发并重复运行")
}

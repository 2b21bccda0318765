package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agrafes/internal/models"
)

func TestEnqueueAndRun_Success(t *testing.T) {
	rt := New(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	done := make(chan struct{})
	job := rt.Enqueue(models.JobImport, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
		p.Report(50, "halfway")
		defer close(done)
		return map[string]interface{}{"units": 3}, nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run in time")
	}
	time.Sleep(20 * time.Millisecond)

	got, err := rt.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobDone, got.Status)
	require.Equal(t, 3, got.Result["units"])
}

func TestEnqueueAndRun_Error(t *testing.T) {
	rt := New(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	done := make(chan struct{})
	job := rt.Enqueue(models.JobCurate, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
		defer close(done)
		return nil, errors.New("boom")
	})

	<-done
	time.Sleep(20 * time.Millisecond)

	got, err := rt.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobError, got.Status)
	require.Equal(t, "boom", got.Error.Message)
}

func TestCancel_QueuedJobSkipsExecution(t *testing.T) {
	rt := New(nil, 0)

	ran := false
	job := rt.Enqueue(models.JobAlign, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
		ran = true
		return nil, nil
	})
	require.NoError(t, rt.Cancel(job.ID))

	got, err := rt.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobCanceled, got.Status)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	require.False(t, ran, "canceled queued job must not execute")
}

func TestCancel_RunningJobObservesFlag(t *testing.T) {
	rt := New(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	started := make(chan struct{})
	canceledSeen := make(chan struct{})
	job := rt.Enqueue(models.JobSegment, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
		close(started)
		for i := 0; i < 100; i++ {
			if p.Canceled() {
				close(canceledSeen)
				return nil, nil
			}
			time.Sleep(5 * time.Millisecond)
		}
		return nil, nil
	})

	<-started
	require.NoError(t, rt.Cancel(job.ID))

	select {
	case <-canceledSeen:
	case <-time.After(2 * time.Second):
		t.Fatal("job never observed cancellation")
	}
	time.Sleep(20 * time.Millisecond)

	got, err := rt.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobCanceled, got.Status)
}

func TestCancel_TerminalJobIsNoop(t *testing.T) {
	rt := New(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	done := make(chan struct{})
	job := rt.Enqueue(models.JobIndex, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
		defer close(done)
		return nil, nil
	})
	<-done
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, rt.Cancel(job.ID))
	got, err := rt.Get(job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobDone, got.Status)
}

func TestFIFOOrder(t *testing.T) {
	rt := New(nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var order []string
	mu := make(chan struct{}, 1)
	mu <- struct{}{}

	finished := make(chan struct{})
	for i := 0; i < 3; i++ {
		n := i
		rt.Enqueue(models.JobIndex, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
			<-mu
			order = append(order, string(rune('a'+n)))
			mu <- struct{}{}
			if n == 2 {
				close(finished)
			}
			return nil, nil
		})
	}
	rt.Start(ctx)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not complete in time")
	}
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestList_FiltersByStatusAndPaginates(t *testing.T) {
	rt := New(nil, 0)
	for i := 0; i < 3; i++ {
		rt.Enqueue(models.JobIndex, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
			return nil, nil
		})
	}

	all := rt.List("", 0, 10)
	require.Len(t, all, 3)

	queued := rt.List(models.JobQueued, 0, 10)
	require.Len(t, queued, 3)

	page := rt.List("", 0, 2)
	require.Len(t, page, 2)
}

func TestRetention_PrunesOldTerminalJobs(t *testing.T) {
	rt := New(nil, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	var last *models.Job
	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		last = rt.Enqueue(models.JobIndex, nil, func(ctx context.Context, p *Progress) (map[string]interface{}, error) {
			defer close(done)
			return nil, nil
		})
		<-done
		time.Sleep(10 * time.Millisecond)
	}

	all := rt.List("", 0, 100)
	require.LessOrEqual(t, len(all), 2)
	_, err := rt.Get(last.ID)
	require.NoError(t, err, "most recent terminal job must survive pruning")
}

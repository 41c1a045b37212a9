package build

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// TaskStatus is the final state of a task.
type TaskStatus string

const (
	TaskSuccess  TaskStatus = "success"
	TaskFailed   TaskStatus = "failed"
	TaskBlocked  TaskStatus = "blocked"
	TaskCanceled TaskStatus = "canceled"
)

// TaskResult reports how one task ended.
type TaskResult struct {
	ID      string
	Kind    TaskKind
	Project string
	Status  TaskStatus
	Err     error
	// BlockedBy names the failed prerequisite of a blocked task.
	BlockedBy string
	Duration  time.Duration
}

type taskRunner func(ctx context.Context, t *Task) error

// scheduler runs a plan with one goroutine per task. A task waits for all
// of its prerequisites, then for a slot of the semaphore.
type scheduler struct {
	plan     *Plan
	sem      *semaphore.Weighted
	failFast bool
	run      taskRunner
	// finished is called once per task, from the task's goroutine.
	finished func(ctx context.Context, r TaskResult)
}

type taskState struct {
	done   chan struct{}
	result TaskResult
}

func newScheduler(plan *Plan, concurrency int, failFast bool, run taskRunner) *scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &scheduler{
		plan:     plan,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		failFast: failFast,
		run:      run,
		finished: func(context.Context, TaskResult) {},
	}
}

// execute runs every task and returns their results in plan order.
func (s *scheduler) execute(ctx context.Context) []TaskResult {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := s.plan.Tasks()
	states := make(map[string]*taskState, len(tasks))
	for _, t := range tasks {
		states[t.ID] = &taskState{done: make(chan struct{})}
	}

	var wg sync.WaitGroup
	for _, t := range tasks {
		st := states[t.ID]
		prereqs := make([]*taskState, 0)
		for _, id := range s.plan.Prerequisites(t.ID) {
			prereqs = append(prereqs, states[id])
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(st.done)
			st.result = s.runTask(ctx, cancel, t, prereqs)
			s.finished(ctx, st.result)
		}()
	}
	wg.Wait()

	out := make([]TaskResult, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, states[t.ID].result)
	}
	return out
}

func (s *scheduler) runTask(ctx context.Context, cancel context.CancelFunc, t *Task, prereqs []*taskState) TaskResult {
	res := TaskResult{ID: t.ID, Kind: t.Kind, Project: t.Project}

	canceled := false
	for _, p := range prereqs {
		<-p.done
		switch p.result.Status {
		case TaskSuccess:
		case TaskCanceled:
			canceled = true
		default:
			if res.BlockedBy == "" {
				res.BlockedBy = p.result.ID
				if p.result.BlockedBy != "" {
					res.BlockedBy = p.result.BlockedBy
				}
			}
		}
	}
	if res.BlockedBy != "" {
		res.Status = TaskBlocked
		return res
	}
	if canceled || ctx.Err() != nil {
		res.Status = TaskCanceled
		return res
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		res.Status = TaskCanceled
		return res
	}
	start := time.Now()
	err := s.run(ctx, t)
	s.sem.Release(1)
	res.Duration = time.Since(start)

	switch {
	case err == nil:
		res.Status = TaskSuccess
	case ctx.Err() != nil:
		res.Status = TaskCanceled
		res.Err = err
	default:
		res.Status = TaskFailed
		res.Err = err
		if s.failFast {
			cancel()
		}
	}
	return res
}

package interp

import (
	"fmt"
	"sync"

	"github.com/luckboy/rsush-sub000/syntax"
)

// job is one background pipeline launched with `&`: done carries its
// exit status once the goroutine running it finishes, buffered so the
// launching goroutine never blocks on a driver that hasn't reaped yet.
type job struct {
	text string
	done chan int
}

// jobTable tracks background pipelines awaiting reaping.
type jobTable struct {
	mu   sync.Mutex
	jobs []*job
}

func newJobTable() *jobTable { return &jobTable{} }

// startBackground spawns lc's pipeline in its own goroutine, over an
// isolated subshell environment, and registers it in the job table so
// reapJobs, run at the end of each InterpretLogicalCommands batch, can
// report its completion.
func (i *Interp) startBackground(lc *syntax.LogicalCommand) {
	sub := i.subshell()
	j := &job{text: describeBackground(lc), done: make(chan int, 1)}
	i.jobs.mu.Lock()
	i.jobs.jobs = append(i.jobs.jobs, j)
	i.jobs.mu.Unlock()

	go func() {
		fg := *lc
		fg.Background = false
		status := sub.runLogical(&fg)
		j.done <- status
	}()
}

func describeBackground(lc *syntax.LogicalCommand) string {
	if lc.First != nil && len(lc.First.Commands) > 0 {
		if sc, ok := lc.First.Commands[0].(*syntax.SimpleCmd); ok && len(sc.Simple.Words) > 0 {
			if lit, ok := sc.Simple.Words[0].Lit(); ok {
				return lit
			}
		}
	}
	return "background job"
}

// reapJobs polls every outstanding background job without blocking,
// collecting the ones that have actually finished, and reports each
// completion to stderr when Notify is set. Unfinished jobs stay in the
// table for the next batch.
func (i *Interp) reapJobs() {
	i.jobs.mu.Lock()
	all := i.jobs.jobs
	i.jobs.jobs = nil
	i.jobs.mu.Unlock()

	var still []*job
	var finished []*job
	for _, j := range all {
		select {
		case <-j.done:
			finished = append(finished, j)
		default:
			still = append(still, j)
		}
	}

	if i.Notify {
		for _, j := range finished {
			fmt.Fprintf(i.Stderr, "[done] %s\n", j.text)
		}
	}

	i.jobs.mu.Lock()
	i.jobs.jobs = append(i.jobs.jobs, still...)
	i.jobs.mu.Unlock()
}

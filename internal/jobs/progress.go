package jobs

import "sync/atomic"

// Progress is the handle a JobFunc uses to report progress and check for
// cancellation at its checkpoints.
type Progress struct {
	rt *Runtime
	id string
}

// Report sets the job's percentage (0..100) and message. Progress is
// clamped to be monotonically non-decreasing within one execution, per
// §4.I.
func (p *Progress) Report(percent int, message string) {
	p.rt.mu.Lock()
	defer p.rt.mu.Unlock()
	job, ok := p.rt.jobs[p.id]
	if !ok || percent < job.Progress {
		return
	}
	job.Progress = percent
	job.Message = message
}

// Canceled reports whether the job's cancellation flag has been set. A
// JobFunc should check this at each checkpoint and return promptly if true.
func (p *Progress) Canceled() bool {
	p.rt.mu.Lock()
	flag, ok := p.rt.cancel[p.id]
	p.rt.mu.Unlock()
	if !ok {
		return false
	}
	return atomic.LoadInt32(flag) == 1
}

package sync

// Reporter receives per-branch progress of SyncAll. Analyzing may be called
// from several goroutines at once.
type Reporter interface {
	Analyzing(idx int, branch string)
	Applying(idx int, branch string)
	Finished(idx int, r *Result)
}

type nopReporter struct{}

func (nopReporter) Analyzing(int, string) {}
func (nopReporter) Applying(int, string)  {}
func (nopReporter) Finished(int, *Result) {}

// WithReporter sets the progress reporter of SyncAll
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

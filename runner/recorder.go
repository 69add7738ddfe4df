package runner

import (
	"context"
	"strings"
	"sync"
)

// Recorder is a Runner for tests. It records every command issued and
// serves scripted results keyed by argv prefix.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	scripts []script
}

type Call struct {
	Argv []string
	Opts Opts
}

type script struct {
	prefix []string
	res    Result
	err    error
}

// Stub makes any command whose argv starts with prefix return res/err
// instead of the zero Result.
func (r *Recorder) Stub(prefix []string, res Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = append(r.scripts, script{prefix: prefix, res: res, err: err})
}

func (r *Recorder) Run(ctx context.Context, argv []string, opts Opts) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Argv: argv, Opts: opts})
	for _, s := range r.scripts {
		if hasPrefix(argv, s.prefix) {
			return s.res, s.err
		}
	}
	return Result{}, nil
}

// Call returns the i-th recorded command with its options.
func (r *Recorder) Call(i int) Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

// Calls returns each recorded command as a single space-joined line.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.calls))
	for i, c := range r.calls {
		lines[i] = strings.Join(c.Argv, " ")
	}
	return lines
}

func hasPrefix(argv, prefix []string) bool {
	if len(prefix) > len(argv) {
		return false
	}
	for i := range prefix {
		if argv[i] != prefix[i] {
			return false
		}
	}
	return true
}

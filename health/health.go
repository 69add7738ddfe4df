// Package health issues the post-convergence probe. A probe observes; it
// never escalates an apply to failure.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/rogpeppe/retry"
)

// Report is the observed outcome of one probe. StatusCode is zero when no
// response was obtained before the window closed.
type Report struct {
	StatusCode int
	Err        error
}

func (r Report) Healthy() bool {
	return r.Err == nil && r.StatusCode/100 == 2
}

type Prober struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Probe polls url until a response arrives or the window elapses. Endpoints
// are usually still starting right after activation, so a few retries
// within the configured window stand in for the operator re-running curl.
func (p Prober) Probe(ctx context.Context, url string, window time.Duration) Report {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	strategy := retry.Strategy{
		Delay:       250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Factor:      2,
		MaxDuration: window,
	}

	var last Report
	for i := strategy.Start(); ; {
		code, err := p.get(ctx, client, url)
		if err == nil {
			return Report{StatusCode: code}
		}
		last = Report{Err: err}
		if !i.Next(ctx.Done()) {
			return last
		}
	}
}

func (p Prober) get(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

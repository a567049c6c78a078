package weathersource

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs the periodic side of an HTTP-polling Source: an interval
// of 0 disables the ticker (the reference implementation's
// "updateInterval 0 = disabled" contract), while Update always
// performs one immediate fetch regardless of the ticker's state. It is
// held as a field by each weathersource adapter rather than reimplemented,
// since all three poll on a timer the same way the teacher's station
// adapters do (see internal/weatherstations/airgradient/station.go's
// pollLoop).
type Poller struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	stop   chan struct{}
	fetch  func(ctx context.Context) error
	logger *zap.SugaredLogger
}

// NewPoller builds a Poller bounded by ctx, calling fetch on each tick
// once SetUpdateInterval(d>0) is in effect.
func NewPoller(ctx context.Context, fetch func(ctx context.Context) error, logger *zap.SugaredLogger) *Poller {
	pctx, cancel := context.WithCancel(ctx)
	return &Poller{ctx: pctx, cancel: cancel, fetch: fetch, logger: logger}
}

// SetUpdateInterval starts, restarts, or (for d<=0) stops the periodic
// poll loop.
func (p *Poller) SetUpdateInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
		p.wg.Wait()
	}
	if d <= 0 {
		return
	}
	stop := make(chan struct{})
	p.stop = stop
	p.wg.Add(1)
	go p.loop(d, stop)
}

func (p *Poller) loop(d time.Duration, stop chan struct{}) {
	defer p.wg.Done()
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := p.fetch(p.ctx); err != nil {
				p.logger.Warnw("weathersource: poll failed", "error", err)
			}
		}
	}
}

// Update performs one immediate fetch, independent of the ticker.
func (p *Poller) Update(ctx context.Context) error {
	return p.fetch(ctx)
}

// Close stops the poll loop and releases its goroutine.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}

package livedemo

import (
	"context"
	"sync"

	Ls "github.com/maroda/livedemo/server"
)

// SourceSupervisor owns the goroutine that drives a Source into the Hub
type SourceSupervisor struct {
	Hub    *Ls.Hub
	Source Ls.Source
	cancel context.CancelFunc
	WG     sync.WaitGroup
}

func NewSourceSupervisor(h *Ls.Hub, src Ls.Source) *SourceSupervisor {
	return &SourceSupervisor{
		Hub:    h,
		Source: src,
	}
}

// Start the SourceSupervisor under ctx
func (p *SourceSupervisor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.WG.Add(1)
	go func() {
		defer p.WG.Done()
		p.Hub.RunSource(ctx, p.Source)
	}()
}

// Stop the SourceSupervisor and wait for the source to return
func (p *SourceSupervisor) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.WG.Wait()
		p.cancel = nil
	}
}

package monitor

import (
	"context"
	"sync"
	"time"

	"solwatch/internal/infra/log"

	"go.uber.org/zap"
)

// Run drives scans at the configured interval until ctx is cancelled.
// Scans never overlap: a tick that fires while a scan is still in flight is
// dropped, not queued. On shutdown the in-flight scan is allowed to finish
// before Run returns.
func (s *Scanner) Run(ctx context.Context) {
	log.LogSuccess("Balance monitor started",
		zap.Duration("interval", s.interval),
		zap.Int("concurrency", s.concurrency))

	// The loop context controls scheduling only. An in-flight scan keeps
	// the scan context so shutdown drains it instead of cancelling fetches
	// mid-air.
	scanCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	runOne := func() {
		if !s.scanning.CompareAndSwap(false, true) {
			log.LogDebug("Previous scan still in flight, skipping tick")
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.scanning.Store(false)
			if _, err := s.RunScan(scanCtx); err != nil {
				log.LogError("Scan abandoned, will retry on next tick", zap.Error(err))
			}
		}()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	runOne()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			log.LogInfo("Balance monitor stopped")
			return
		case <-ticker.C:
			runOne()
		}
	}
}

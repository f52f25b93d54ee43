package inventory

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultReachabilityConcurrency bounds the number of simultaneous TCP
// probes run by ReachableSubset, per the spec's ~10 concurrency guidance.
const DefaultReachabilityConcurrency = 10

// ReachabilityTimeout bounds a single candidate's dial attempt.
const ReachabilityTimeout = 3 * time.Second

// ReachableSubset performs a best-effort TCP reachability probe against the
// SSH port of each candidate device, in parallel with a bounded worker
// pool. It never returns an error for an individual candidate's failure —
// that candidate simply maps to false.
//
// Concurrency is hand-rolled with a buffered-channel semaphore plus a
// WaitGroup, matching the teacher's established idiom elsewhere in this
// module (no golang.org/x/sync/errgroup is used anywhere in this codebase).
func (inv *Inventory) ReachableSubset(ctx context.Context, candidates []string, concurrency int) map[string]bool {
	if concurrency <= 0 {
		concurrency = DefaultReachabilityConcurrency
	}

	result := make(map[string]bool, len(candidates))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for _, name := range candidates {
		dev := inv.Get(name)
		if dev == nil || !dev.Usable() {
			mu.Lock()
			result[name] = false
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(name string, addr string, port int) {
			defer wg.Done()
			defer func() { <-sem }()

			ok := probeTCP(ctx, addr, port)
			mu.Lock()
			result[name] = ok
			mu.Unlock()
		}(name, dev.MgmtIP, dev.SSHPort)
	}

	wg.Wait()
	return result
}

func probeTCP(ctx context.Context, addr string, port int) bool {
	if port == 0 {
		port = 22
	}
	dialer := net.Dialer{Timeout: ReachabilityTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type progressPrinter struct {
	out         io.Writer
	total       int
	name        string
	mu          sync.Mutex
	reachable   int
	unreachable int
	duration    float64
	updates     chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	loopDone    sync.WaitGroup
}

func newProgressPrinter(out io.Writer, total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		out:     out,
		total:   total,
		name:    name,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	p.loopDone.Add(1)
	go p.loop()
}

// Increment records one finished domain. Safe to call from batch workers.
func (p *progressPrinter) Increment(reachable bool, seconds float64) {
	p.mu.Lock()
	if reachable {
		p.reachable++
	} else {
		p.unreachable++
	}
	p.duration += seconds
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// Stop prints the final line and waits for the refresh loop to exit.
func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.loopDone.Wait()
		p.mu.Lock()
		defer p.mu.Unlock()
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
		fmt.Fprintln(p.out, p.line())
	})
}

func (p *progressPrinter) loop() {
	defer p.loopDone.Done()

	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.out, "\r"+p.line())
}

// line renders the current counters. Callers hold p.mu.
func (p *progressPrinter) line() string {
	completed := p.reachable + p.unreachable
	if completed > p.total {
		p.total = completed
	}

	percent := (float64(completed) / float64(p.total)) * 100
	avg := 0.0
	if completed > 0 {
		avg = p.duration / float64(completed)
	}

	return fmt.Sprintf("[%s] Progress: %d/%d (%.1f%%) Reachable:%d Unreachable:%d Avg:%.2fs",
		p.name, completed, p.total, percent, p.reachable, p.unreachable, avg)
}

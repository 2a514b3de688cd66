package executor

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/simlink/simlink/internal/core/observability/log"
)

// ProgressFunc is the pluggable reporting sink: elapsed and total share
// unit; total of zero means open-ended.
type ProgressFunc func(elapsed, total float64, unit, header string)

// LogProgress adapts a logger into a ProgressFunc.
func LogProgress(logger log.Log) ProgressFunc {
	return func(elapsed, total float64, unit, header string) {
		fields := []log.Field{
			log.Float64("elapsed", elapsed),
			log.String("unit", unit),
		}
		if total > 0 {
			fields = append(fields,
				log.Float64("total", total),
				log.Float64("percent", math.Min(elapsed/total, 1)*100))
		}
		logger.Info(header, fields...)
	}
}

// reporter emits a status line at a fixed cadence, independent of stepping
// rate, on its own goroutine. It stops exactly once, emitting a final
// line so even a zero-length wait reports completion.
type reporter struct {
	sink    ProgressFunc
	header  string
	unit    string
	total   float64
	current atomic.Uint64 // float64 bits

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// startReporter launches the reporting goroutine. A nil sink yields a
// no-op reporter so call sites stay unconditional.
func startReporter(sink ProgressFunc, header, unit string, total float64, cadence time.Duration) *reporter {
	r := &reporter{
		sink:   sink,
		header: header,
		unit:   unit,
		total:  total,
		done:   make(chan struct{}),
	}
	if sink == nil {
		return r
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(cadence)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sink(r.value(), r.total, r.unit, r.header)
			case <-r.done:
				return
			}
		}
	}()
	return r
}

func (r *reporter) update(v float64) {
	r.current.Store(math.Float64bits(v))
}

func (r *reporter) value() float64 {
	return math.Float64frombits(r.current.Load())
}

// stop terminates the goroutine and emits the final status. Safe to call
// multiple times; deferred at every wait's entry.
func (r *reporter) stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		if r.sink != nil {
			final := r.value()
			if r.total > 0 {
				final = r.total
			}
			r.sink(final, r.total, r.unit, r.header)
		}
	})
}

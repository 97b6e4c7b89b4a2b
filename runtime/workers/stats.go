package workers

import (
	"chat-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// StatsWorker samples the relay's own process on a fixed cadence and
// pushes RSS and CPU into the monitoring manager, where health_check
// picks them up.
type StatsWorker struct {
	monitoring     *observability.MonitoringManager
	metricInterval time.Duration
	log            *slog.Logger
}

func NewStatsWorker(monitoring *observability.MonitoringManager,
	metricInterval time.Duration, log *slog.Logger) *StatsWorker {
	return &StatsWorker{
		monitoring:     monitoring,
		metricInterval: metricInterval,
		log:            log,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process sampling")
			return nil
		case <-ticker.C:
			cpu, err := proc.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			mem, err := proc.MemoryInfo()
			if err != nil {
				w.log.Error("Error while finding process memory usage", "err", err)
				continue
			}
			w.monitoring.SetProcessSample(float64(mem.RSS)/1024/1024, cpu)
		}
	}
}

package system

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats summarises one command run for the performance report.
type Stats struct {
	Build    string
	Command  string
	Input    string
	Items    int
	Elapsed  time.Duration
	CPUCount int
	CPULoad  float64
	RSSBytes uint64
	MemUsed  float64
}

// Collect samples host and process usage; unavailable readings stay zero.
func Collect(build, command, input string, items int, elapsed time.Duration) Stats {
	s := Stats{
		Build:   build,
		Command: command,
		Input:   input,
		Items:   items,
		Elapsed: elapsed,
	}
	if n, err := cpu.Counts(true); err == nil {
		s.CPUCount = n
	}
	if load, err := cpu.Percent(0, false); err == nil && len(load) > 0 {
		s.CPULoad = load[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemUsed = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			s.RSSBytes = mi.RSS
		}
	}
	return s
}

func (s Stats) rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Items) / s.Elapsed.Seconds()
}

func (s Stats) Report() string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Command: %s\n"+
			"Total Time: %.2fs\n"+
			"Items: %d (%.2f/s)\n"+
			"CPU: %d cores, %.1f%% load\n"+
			"Memory: %.1f MiB RSS, host %.1f%% used\n"+
			"----------------------------\n",
		s.Build, s.Command, s.Elapsed.Seconds(), s.Items, s.rate(),
		s.CPUCount, s.CPULoad, float64(s.RSSBytes)/(1<<20), s.MemUsed,
	)
}

func (s Stats) LogLine(now time.Time) string {
	return fmt.Sprintf("[%s] Build: %s | Command: %s | Input: %s | Items: %d | Total: %.2fs | Rate: %.2f/s | RSS: %.1fMiB\n",
		now.Format("2006-01-02 15:04:05"),
		s.Build,
		s.Command,
		s.Input,
		s.Items,
		s.Elapsed.Seconds(),
		s.rate(),
		float64(s.RSSBytes)/(1<<20),
	)
}

// AppendLog appends the one-line summary to path.
func (s Stats) AppendLog(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(s.LogLine(time.Now()))
	return err
}

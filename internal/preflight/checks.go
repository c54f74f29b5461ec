package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sys/unix"

	"renderforge/internal/jobstore"
	"renderforge/internal/services"
)

// CheckDirectoryAccess verifies a directory exists and is readable,
// writable, and traversable by the current process.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFFmpeg verifies the encoder binary is resolvable on PATH.
func CheckFFmpeg(binary string) Result {
	const name = "FFmpeg"
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found in PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckDiskSpace verifies the filesystem holding path has at least
// minFreeGiB of free space. A zero threshold disables the check.
func CheckDiskSpace(path string, minFreeGiB int) Result {
	const name = "Disk space"
	usage, err := disk.Usage(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("usage lookup failed: %v", err)}
	}
	freeGiB := float64(usage.Free) / (1 << 30)
	detail := fmt.Sprintf("%.1f GiB free (minimum %d GiB)", freeGiB, minFreeGiB)
	if minFreeGiB > 0 && usage.Free < uint64(minFreeGiB)<<30 {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckMemory verifies the host has at least minFreeMB of available
// memory. A zero threshold disables the check.
func CheckMemory(minFreeMB int) Result {
	const name = "Memory"
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("memory lookup failed: %v", err)}
	}
	availableMB := vm.Available >> 20
	detail := fmt.Sprintf("%d MB available (minimum %d MB)", availableMB, minFreeMB)
	if minFreeMB > 0 && availableMB < uint64(minFreeMB) {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCPULoad samples CPU utilization over one second and compares it
// against maxPercent. A zero threshold disables the check.
func CheckCPULoad(ctx context.Context, maxPercent float64) Result {
	const name = "CPU load"
	percents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil || len(percents) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("cpu sample failed: %v", err)}
	}
	detail := fmt.Sprintf("%.1f%% busy (maximum %.1f%%)", percents[0], maxPercent)
	if maxPercent > 0 && percents[0] > maxPercent {
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckStore verifies the job store answers a health query.
func CheckStore(ctx context.Context, store jobstore.Store) Result {
	const name = "Job store"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	summary, err := store.Health(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: services.Message(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d jobs (%d queued, %d processing)", summary.Total, summary.Queued, summary.Processing)}
}

// internal/api/v2/system.go
package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemInfo represents basic system information
type SystemInfo struct {
	OS            string    `json:"os"`
	Architecture  string    `json:"architecture"`
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform"`
	PlatformVer   string    `json:"platform_version"`
	KernelVersion string    `json:"kernel_version"`
	UpTime        uint64    `json:"uptime_seconds"`
	BootTime      time.Time `json:"boot_time"`
	AppStart      time.Time `json:"app_start_time"`
	AppUptime     int64     `json:"app_uptime_seconds"`
	GoVersion     string    `json:"go_version"`
	CPU           CPUInfo   `json:"cpu"`
	Memory        *MemInfo  `json:"memory,omitempty"`
}

// CPUInfo describes the processor.
type CPUInfo struct {
	Brand         string `json:"brand"`
	Vendor        string `json:"vendor"`
	PhysicalCores int    `json:"physical_cores"`
	LogicalCores  int    `json:"logical_cores"`
	NumCPU        int    `json:"num_cpu"`
}

// MemInfo represents memory usage of the host and this process.
type MemInfo struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"usage_percent"`
	ProcessRSS  uint64  `json:"process_rss"`
}

func cpuInfo() CPUInfo {
	return CPUInfo{
		Brand:         cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		NumCPU:        runtime.NumCPU(),
	}
}

// GetSystemInfo handles GET /api/v2/system
func (c *Controller) GetSystemInfo(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	hostInfo, err := host.InfoWithContext(reqCtx)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get host information", http.StatusInternalServerError)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	info := SystemInfo{
		OS:            runtime.GOOS,
		Architecture:  runtime.GOARCH,
		Hostname:      hostname,
		Platform:      hostInfo.Platform,
		PlatformVer:   hostInfo.PlatformVersion,
		KernelVersion: hostInfo.KernelVersion,
		UpTime:        hostInfo.Uptime,
		BootTime:      time.Unix(int64(hostInfo.BootTime), 0).UTC(),
		AppStart:      c.startTime,
		AppUptime:     int64(time.Since(c.startTime).Seconds()),
		GoVersion:     runtime.Version(),
		CPU:           cpuInfo(),
	}

	// Memory is best effort; some containers hide it.
	if vm, err := mem.VirtualMemoryWithContext(reqCtx); err == nil {
		info.Memory = &MemInfo{
			Total:       vm.Total,
			Used:        vm.Used,
			Free:        vm.Free,
			UsedPercent: vm.UsedPercent,
		}
		if proc, err := process.NewProcessWithContext(reqCtx, int32(os.Getpid())); err == nil {
			if pm, err := proc.MemoryInfoWithContext(reqCtx); err == nil {
				info.Memory.ProcessRSS = pm.RSS
			}
		}
	}

	return ctx.JSON(http.StatusOK, info)
}

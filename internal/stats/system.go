package stats

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is a point-in-time snapshot of the host the bot runs on.
type SystemInfo struct {
	HostUptime time.Duration
	OS         string
	Platform   string
	CPUUsage   float64
	RAMUsed    uint64
	RAMTotal   uint64
}

func CollectSystemInfo() *SystemInfo {
	info := &SystemInfo{}

	if hi, err := host.Info(); err == nil {
		info.HostUptime = time.Duration(hi.Uptime) * time.Second
		info.OS = hi.OS
		info.Platform = hi.Platform
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.RAMUsed = vm.Used
		info.RAMTotal = vm.Total
	}

	if usage, err := cpu.Percent(0, false); err == nil && len(usage) > 0 {
		info.CPUUsage = usage[0]
	}

	return info
}

package system

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProbe = errors.New("probe failed")

type fakeHost struct {
	cores      []float64
	cpuErr     error
	vm         *mem.VirtualMemoryStat
	vmErr      error
	swap       *mem.SwapMemoryStat
	partitions []disk.PartitionStat
	virtual    []disk.PartitionStat
	partCalls  int
	usage      map[string]*disk.UsageStat
	usageErr   error
	counters   []net.IOCountersStat
	netErr     error
	temps      []sensors.TemperatureStat
	tempErr    error
}

func (f *fakeHost) probes() Probes {
	return Probes{
		CPUPercent: func(context.Context, time.Duration, bool) ([]float64, error) {
			return f.cores, f.cpuErr
		},
		VirtualMemory: func(context.Context) (*mem.VirtualMemoryStat, error) { return f.vm, f.vmErr },
		SwapMemory:    func(context.Context) (*mem.SwapMemoryStat, error) { return f.swap, nil },
		Partitions: func(_ context.Context, all bool) ([]disk.PartitionStat, error) {
			f.partCalls++
			if !all {
				return f.partitions, nil
			}
			return append(append([]disk.PartitionStat{}, f.partitions...), f.virtual...), nil
		},
		Usage: func(_ context.Context, path string) (*disk.UsageStat, error) {
			if f.usageErr != nil {
				return nil, f.usageErr
			}
			return f.usage[path], nil
		},
		IOCounters:   func(context.Context, bool) ([]net.IOCountersStat, error) { return f.counters, f.netErr },
		Temperatures: func(context.Context) ([]sensors.TemperatureStat, error) { return f.temps, f.tempErr },
	}
}

func newTestSource(f *fakeHost) *Source {
	return NewSource(f.probes(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRefreshAllKeepsPreviousValuesOnFailure(t *testing.T) {
	f := &fakeHost{
		cores: []float64{10, 30},
		vm:    &mem.VirtualMemoryStat{Used: 50, Total: 100},
		swap:  &mem.SwapMemoryStat{Used: 1, Total: 4},
	}
	s := newTestSource(f)
	ctx := context.Background()

	s.RefreshAll(ctx)
	assert.Equal(t, []float64{10, 30}, s.Cores())
	assert.Equal(t, MemoryUsage{UsedBytes: 50, TotalBytes: 100}, s.Memory())
	assert.Equal(t, MemoryUsage{UsedBytes: 1, TotalBytes: 4}, s.Swap())

	f.cores = nil
	f.cpuErr = errProbe
	f.vm = nil
	f.vmErr = errProbe
	s.RefreshAll(ctx)

	assert.Equal(t, []float64{10, 30}, s.Cores())
	assert.Equal(t, MemoryUsage{UsedBytes: 50, TotalBytes: 100}, s.Memory())
}

func TestCoresReturnsCopy(t *testing.T) {
	s := newTestSource(&fakeHost{cores: []float64{1, 2}})
	s.RefreshAll(context.Background())

	cores := s.Cores()
	cores[0] = 99
	assert.Equal(t, []float64{1, 2}, s.Cores())
}

func TestRefreshDisksEnumeratesPartitionsLazily(t *testing.T) {
	f := &fakeHost{
		partitions: []disk.PartitionStat{{Mountpoint: "/"}, {Mountpoint: "/data"}},
		usage: map[string]*disk.UsageStat{
			"/":     {Total: 100, Free: 25},
			"/data": {Total: 200, Free: 200},
		},
	}
	s := newTestSource(f)
	ctx := context.Background()

	s.RefreshDisks(ctx, "/")
	s.RefreshDisks(ctx, "/", "/data")
	assert.Equal(t, 1, f.partCalls)

	root, ok := s.Disk("/")
	require.True(t, ok)
	assert.Equal(t, DiskUsage{MountPoint: "/", TotalBytes: 100, AvailableBytes: 25}, root)
	assert.Equal(t, []string{"/", "/data"}, s.MountPoints())

	// An unknown mount forces one re-enumeration, then is remembered as absent.
	s.RefreshDisks(ctx, "/missing")
	s.RefreshDisks(ctx, "/missing")
	assert.Equal(t, 2, f.partCalls)
	_, ok = s.Disk("/missing")
	assert.False(t, ok)
}

func TestRefreshDisksMatchesVirtualAndNetworkMounts(t *testing.T) {
	f := &fakeHost{
		virtual: []disk.PartitionStat{
			{Mountpoint: "/", Fstype: "overlay"},
			{Mountpoint: "/mnt/share", Fstype: "nfs4"},
			{Mountpoint: "/dev/shm", Fstype: "tmpfs"},
		},
		usage: map[string]*disk.UsageStat{
			"/":          {Total: 100, Free: 40},
			"/mnt/share": {Total: 1000, Free: 250},
			"/dev/shm":   {Total: 64, Free: 64},
		},
	}
	s := newTestSource(f)

	s.RefreshDisks(context.Background(), "/", "/mnt/share", "/dev/shm")

	for _, mount := range []string{"/", "/mnt/share", "/dev/shm"} {
		d, ok := s.Disk(mount)
		require.True(t, ok, mount)
		assert.Equal(t, f.usage[mount].Total, d.TotalBytes, mount)
	}
}

func TestRefreshDisksRetriesAbsentMountAfterDelay(t *testing.T) {
	f := &fakeHost{
		partitions: []disk.PartitionStat{{Mountpoint: "/"}},
		usage: map[string]*disk.UsageStat{
			"/":         {Total: 100, Free: 50},
			"/mnt/late": {Total: 200, Free: 100},
		},
	}
	s := newTestSource(f)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.RefreshDisks(ctx, "/", "/mnt/late")
	require.Equal(t, 1, f.partCalls)
	_, ok := s.Disk("/mnt/late")
	assert.False(t, ok)

	// Mounted after startup; not noticed until the retry delay has passed.
	f.partitions = append(f.partitions, disk.PartitionStat{Mountpoint: "/mnt/late"})
	now = now.Add(absentRetry / 2)
	s.RefreshDisks(ctx, "/", "/mnt/late")
	assert.Equal(t, 1, f.partCalls)

	now = now.Add(absentRetry / 2)
	s.RefreshDisks(ctx, "/", "/mnt/late")
	assert.Equal(t, 2, f.partCalls)
	late, ok := s.Disk("/mnt/late")
	require.True(t, ok)
	assert.Equal(t, uint64(200), late.TotalBytes)

	// Present mounts never trigger enumeration again.
	now = now.Add(10 * absentRetry)
	s.RefreshDisks(ctx, "/", "/mnt/late")
	assert.Equal(t, 2, f.partCalls)
}

func TestRefreshDisksAbsentTimerIsNotResetByRequests(t *testing.T) {
	f := &fakeHost{partitions: []disk.PartitionStat{{Mountpoint: "/"}}}
	s := newTestSource(f)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.RefreshDisks(ctx, "/gone")
	for i := 0; i < 4; i++ {
		now = now.Add(absentRetry / 4)
		s.RefreshDisks(ctx, "/gone")
	}
	// One enumeration at startup, one once the delay elapsed.
	assert.Equal(t, 2, f.partCalls)
}

func TestRefreshDisksKeepsPreviousUsageOnFailure(t *testing.T) {
	f := &fakeHost{
		partitions: []disk.PartitionStat{{Mountpoint: "/"}},
		usage:      map[string]*disk.UsageStat{"/": {Total: 100, Free: 40}},
	}
	s := newTestSource(f)
	ctx := context.Background()

	s.RefreshDisks(ctx, "/")
	f.usageErr = errProbe
	s.RefreshDisks(ctx, "/")

	root, ok := s.Disk("/")
	require.True(t, ok)
	assert.Equal(t, uint64(40), root.AvailableBytes)
}

func TestRefreshNetworkSortsInterfaces(t *testing.T) {
	f := &fakeHost{counters: []net.IOCountersStat{
		{Name: "wlan0", BytesRecv: 5, BytesSent: 6},
		{Name: "eth0", BytesRecv: 1, BytesSent: 2},
	}}
	s := newTestSource(f)
	s.RefreshNetwork(context.Background())

	assert.Equal(t, []InterfaceCounters{
		{Name: "eth0", RxBytes: 1, TxBytes: 2},
		{Name: "wlan0", RxBytes: 5, TxBytes: 6},
	}, s.Interfaces())

	f.counters = nil
	f.netErr = errProbe
	s.RefreshNetwork(context.Background())
	assert.Len(t, s.Interfaces(), 2)
}

func TestRefreshSensorsAcceptsPartialResults(t *testing.T) {
	f := &fakeHost{
		temps:   []sensors.TemperatureStat{{SensorKey: "coretemp_core_0", Temperature: 48.5}},
		tempErr: errProbe,
	}
	s := newTestSource(f)
	s.RefreshSensors(context.Background())

	assert.Equal(t, []SensorReading{{Label: "coretemp_core_0", Celsius: 48.5}}, s.Readings())
}

func TestListProbes(t *testing.T) {
	f := &fakeHost{
		counters: []net.IOCountersStat{{Name: "lo"}, {Name: "eth0"}},
		temps:    []sensors.TemperatureStat{{SensorKey: "nvme"}, {SensorKey: "acpitz"}},
	}
	s := newTestSource(f)
	ctx := context.Background()

	ifaces, err := s.ListNetworkInterfaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"eth0", "lo"}, ifaces)

	labels, err := s.ListTemperatureSensors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acpitz", "nvme"}, labels)

	assert.Empty(t, s.Interfaces(), "list probes must not touch cached state")

	f.counters = nil
	f.netErr = errProbe
	_, err = s.ListNetworkInterfaces(ctx)
	assert.ErrorIs(t, err, errProbe)
}

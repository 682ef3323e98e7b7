package system

import (
	"context"
	"sort"
	"time"
)

// absentRetry is how long a missing mount point is remembered before a
// request for it enumerates partitions again.
const absentRetry = 5 * time.Minute

type DiskUsage struct {
	MountPoint     string
	TotalBytes     uint64
	AvailableBytes uint64
}

// RefreshDisks refreshes usage for the given mount points. The partition
// list is enumerated on first use, when a mount never seen before is
// requested, and when an absent mount was last checked absentRetry ago.
func (s *Source) RefreshDisks(ctx context.Context, mounts ...string) {
	if len(mounts) == 0 {
		return
	}
	reloaded := false
	if !s.mountsLoaded || s.hasUnknownMount(mounts) {
		reloaded = s.loadPartitions(ctx)
	}

	for _, mount := range mounts {
		if _, ok := s.mounts[mount]; !ok {
			if _, known := s.absent[mount]; !known {
				s.logger.Warn("mount point not found, reporting zero usage", "mount", mount)
				s.absent[mount] = s.now()
			} else if reloaded {
				s.absent[mount] = s.now()
			}
			delete(s.disks, mount)
			continue
		}
		usage, err := s.probes.Usage(ctx, mount)
		if err != nil || usage == nil {
			s.logger.Warn("read disk usage failed, keeping previous value", "mount", mount, "error", err)
			continue
		}
		s.disks[mount] = DiskUsage{
			MountPoint:     mount,
			TotalBytes:     usage.Total,
			AvailableBytes: usage.Free,
		}
	}
}

func (s *Source) hasUnknownMount(mounts []string) bool {
	for _, m := range mounts {
		if _, ok := s.mounts[m]; ok {
			continue
		}
		checked, ok := s.absent[m]
		if !ok || s.now().Sub(checked) >= absentRetry {
			return true
		}
	}
	return false
}

// loadPartitions reads the full mount table, virtual and network
// filesystems included, so targets on nfs, tmpfs or an overlay root match.
func (s *Source) loadPartitions(ctx context.Context) bool {
	parts, err := s.probes.Partitions(ctx, true)
	if err != nil && len(parts) == 0 {
		s.logger.Warn("enumerate partitions failed", "error", err)
		return false
	}
	mounts := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		mounts[p.Mountpoint] = struct{}{}
	}
	s.mounts = mounts
	for m := range s.absent {
		if _, ok := mounts[m]; ok {
			delete(s.absent, m)
		}
	}
	s.mountsLoaded = true
	return true
}

// Disk returns the cached usage of an exact mount point match.
func (s *Source) Disk(mount string) (DiskUsage, bool) {
	d, ok := s.disks[mount]
	return d, ok
}

// MountPoints lists the partitions seen at the last enumeration.
func (s *Source) MountPoints() []string {
	out := make([]string, 0, len(s.mounts))
	for m := range s.mounts {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

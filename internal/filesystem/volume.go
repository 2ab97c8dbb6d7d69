package filesystem

import (
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
)

const unknownVolume = "unknown"

// VolumeResolver labels paths with configured volume names by longest
// matching prefix.
type VolumeResolver struct {
	mounts []volumeMount // longest path first
}

type volumeMount struct {
	prefix string // absolute, with trailing slash
	name   string
}

// NewVolumeResolver builds a resolver from volume name to mount path, e.g.
// {"nas": "/mnt/photos", "database": "/var/lib/plexmediaserver"}.
func NewVolumeResolver(volumes map[string]string) *VolumeResolver {
	mounts := make([]volumeMount, 0, len(volumes))
	for name, path := range volumes {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		mounts = append(mounts, volumeMount{prefix: strings.TrimSuffix(path, "/") + "/", name: name})
	}
	sort.Slice(mounts, func(i, j int) bool {
		return len(mounts[i].prefix) > len(mounts[j].prefix)
	})
	return &VolumeResolver{mounts: mounts}
}

// Resolve returns the volume holding path, or "unknown".
func (vr *VolumeResolver) Resolve(path string) string {
	if vr == nil {
		return unknownVolume
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return unknownVolume
	}
	for _, m := range vr.mounts {
		if strings.HasPrefix(abs+"/", m.prefix) {
			return m.name
		}
	}
	return unknownVolume
}

var defaultResolver atomic.Pointer[VolumeResolver]

// SetDefaultVolumeResolver sets the resolver used when a RetryConfig does
// not carry one.
func SetDefaultVolumeResolver(vr *VolumeResolver) {
	defaultResolver.Store(vr)
}

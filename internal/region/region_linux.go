//go:build linux

package region

import "golang.org/x/sys/unix"

// platformFlags translates Config into Linux mmap flags. All four optional
// flags are real here; MAP_STACK applies to anonymous mappings only.
func platformFlags(cfg Config, anon bool) int {
	flags := 0
	if anon && cfg.Stack {
		flags |= unix.MAP_STACK
	}
	if cfg.Locked {
		flags |= unix.MAP_LOCKED
	}
	switch cfg.Huge {
	case Huge2MB:
		flags |= unix.MAP_HUGETLB | unix.MAP_HUGE_2MB
	case Huge1GB:
		flags |= unix.MAP_HUGETLB | unix.MAP_HUGE_1GB
	}
	if cfg.NoReserve {
		flags |= unix.MAP_NORESERVE
	}
	return flags
}

//go:build darwin

package region

import "golang.org/x/sys/unix"

// platformFlags translates Config into Darwin mmap flags. MAP_STACK,
// MAP_LOCKED and huge pages do not exist on Darwin, so Stack, Locked and
// Huge degrade to no-ops; only NoReserve is honoured.
func platformFlags(cfg Config, anon bool) int {
	if cfg.NoReserve {
		return unix.MAP_NORESERVE
	}
	return 0
}

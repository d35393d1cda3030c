//go:build !(linux || darwin || freebsd || openbsd || netbsd)

package crypto

// mlock is unavailable here; the key is still zeroed on Destroy.
func mlock([]byte) bool { return false }

func munlock([]byte) {}

package loop

import "runtime"

// getGoroutineID returns the current goroutine's ID by parsing the header of
// its stack trace. The runtime offers no direct accessor; the header format
// ("goroutine N [...]") is stable across releases.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}

	return id
}

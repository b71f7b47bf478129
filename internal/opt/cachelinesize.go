//go:build !xpsync_cachelinesize_32 && !xpsync_cachelinesize_64 && !xpsync_cachelinesize_128 && !xpsync_cachelinesize_256

package opt

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize_ is used to pad wait slots so that goroutines spinning on
// neighbouring slots do not share a cache line.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize_ = unsafe.Sizeof(cpu.CacheLinePad{})

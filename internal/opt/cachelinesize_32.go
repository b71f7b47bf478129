//go:build xpsync_cachelinesize_32

package opt

// CacheLineSize_ is forced by the xpsync_cachelinesize_32 build tag.
const CacheLineSize_ uintptr = 32

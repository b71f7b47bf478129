//go:build xpsync_cachelinesize_64

package opt

// CacheLineSize_ is forced by the xpsync_cachelinesize_64 build tag.
const CacheLineSize_ uintptr = 64

//go:build xpsync_cachelinesize_256

package opt

// CacheLineSize_ is forced by the xpsync_cachelinesize_256 build tag.
const CacheLineSize_ uintptr = 256

//go:build xpsync_enable_padding

package opt

// SlotAlign_ is the size wait slots are rounded up to.
// Padding is force-enabled via the xpsync_enable_padding build tag.
// Use: go build -tags=xpsync_enable_padding
const SlotAlign_ = CacheLineSize_

//go:build xpsync_disable_padding

package opt

// SlotAlign_ is the size wait slots are rounded up to.
// Padding is force-disabled via the xpsync_disable_padding build tag.
// Use: go build -tags=xpsync_disable_padding
const SlotAlign_ uintptr = 1

//go:build (amd64 || 386 || arm || mips || mipsle || wasm) && !xpsync_disable_padding && !xpsync_enable_padding

package opt

// SlotAlign_ is the size wait slots are rounded up to.
// Padding is disabled by default for:
// - amd64
// - 32-bit architectures (386, arm, mips, mipsle, wasm)
const SlotAlign_ uintptr = 1

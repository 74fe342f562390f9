//go:build tinygo && !(baremetal && rp2040)

package hal

// Only the RP2040 bare-metal port exists. Any other TinyGo target stops here.
var _ int = "hal: unsupported TinyGo target"

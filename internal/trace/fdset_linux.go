//go:build linux

package trace

// fdSetWordBits is the width of each syscall.FdSet.Bits word on this
// platform; glibc-derived fd_set packs 64 descriptors per word on 64-bit
// Linux.
const fdSetWordBits = 64

// Package wire owns the daemon's smart-socket framing.
//
// Requests are a 4-digit upper-case hex byte length followed by the raw
// command bytes. Replies start with an optional 4-byte status token and carry
// a body whose framing depends on the command family:
//   - none: nothing follows the status token
//   - length-prefixed: 4 hex digits of byte count, then that many bytes
//   - to-EOF: raw bytes until the peer closes its write side
package wire

// Package adb is a client for the host-side device daemon.
//
// A Session owns one TCP connection and runs one command at a time on it.
// Devices discovered through a Session each dial their own Session, because
// the daemon binds transport selection to the connection it arrived on.
//
// Sessions are not safe for concurrent use.
package adb

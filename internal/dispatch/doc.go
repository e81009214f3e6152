// Package dispatch turns received control datagrams into host actions.
//
// One readiness event handles at most one datagram. Every failure is
// logged and dropped so the channel keeps serving later commands.
package dispatch

package host

// Actions are the host calls exposed to the command dispatcher. Both are
// invoked on the loop goroutine.
type Actions interface {
	Navigate(uri string)
	Terminate()
}

// Readable is a descriptor the loop can wait on for read readiness.
type Readable interface {
	WaitReadable() error
}

//go:build !unix

package platform

// Serial ports outside unix are opened exclusively by the OS.
type noopPortLock struct{}

func (noopPortLock) Release() error { return nil }

func acquirePortLock(_, _ string) (PortLock, error) {
	return noopPortLock{}, nil
}

//go:build !linux

package enforce

func newIptables(opts Options) (Enforcer, error) {
	return nil, ErrUnsupportedPlatform
}

func newNftables(opts Options) (Enforcer, error) {
	return nil, ErrUnsupportedPlatform
}

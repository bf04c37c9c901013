//go:build !linux

package touch

// Open reports ErrUnsupported outside Linux.
func Open(opts Options) (Source, error) {
	return nil, ErrUnsupported
}

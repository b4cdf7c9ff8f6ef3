//go:build !android && !darwin

package output

// DefaultKind is the strategy used when none is configured.
const DefaultKind = Planar

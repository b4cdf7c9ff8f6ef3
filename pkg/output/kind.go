package output

import (
	"fmt"
	"strings"

	"github.com/user/supervideo/pkg/ports"
)

// Kind selects an output strategy.
type Kind string

const (
	// Auto picks DefaultKind for the build target.
	Auto Kind = "auto"
	// Packed renders into an RGBA external surface and captures it with a
	// GPU pass into a readable color texture.
	Packed Kind = "packed"
	// Planar copies luma and Rg16 chroma bytes and reconstructs color with
	// a ColorConverter.
	Planar Kind = "planar"
	// Swizzle renders into a BGRA external surface and swaps red and blue
	// in a render-to-texture pass.
	Swizzle Kind = "swizzle"
)

// ParseKind parses a strategy name. An empty name means Auto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return Auto, nil
	case Auto, Packed, Planar, Swizzle:
		return k, nil
	default:
		return "", fmt.Errorf("%w: output strategy %q", ports.ErrInvalidArgument, s)
	}
}

// Resolve replaces Auto with DefaultKind.
func (k Kind) Resolve() Kind {
	if k == Auto || k == "" {
		return DefaultKind
	}
	return k
}

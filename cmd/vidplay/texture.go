package main

import (
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/supervideo/pkg/adapters/osfilesystem"
	"github.com/user/supervideo/pkg/adapters/softgpu"
	"github.com/user/supervideo/pkg/astc"
	"github.com/user/supervideo/pkg/ports"
)

// textureReport describes a loaded .astc texture.
type textureReport struct {
	Description string
	Format      ports.SurfaceFormat
	Bytes       int
}

// inspectTexture loads an .astc file and uploads it to dev to check that
// the payload matches the block layout.
func inspectTexture(path string, fs ports.FileSystem, dev ports.GraphicsDevice, srgb bool) (textureReport, error) {
	b, err := astc.Load(fs, path, srgb)
	if err != nil {
		return textureReport{}, err
	}
	format, _ := b.TryGetFormat()
	report := textureReport{Description: b.String(), Format: format, Bytes: b.DataSize()}

	var uploadErr error
	dev.Invoke(func() {
		var tex ports.Texture
		tex, uploadErr = astc.Upload(dev, b)
		if uploadErr == nil {
			tex.Dispose()
		}
	})
	return report, uploadErr
}

func textureAction(c *cli.Context) error {
	path, err := requireFile(c)
	if err != nil {
		return err
	}
	dev, err := softgpu.NewDevice(1, 1)
	if err != nil {
		return err
	}
	report, err := inspectTexture(path, osfilesystem.New(), dev, c.Bool("srgb"))
	if err != nil {
		return err
	}
	fmt.Println(report.Description)
	fmt.Println(l10n.F("%d bytes of block data", report.Bytes))
	return nil
}

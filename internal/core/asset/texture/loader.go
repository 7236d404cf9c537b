package texture

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io/fs"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/alchemy-engine/alchemy/internal/core/asset"
)

// Extensions lists the file extensions the Loader can decode.
var Extensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"}

// Loader decodes textures from a file system rooted at the asset directory.
type Loader struct {
	fsys fs.FS
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

func (l *Loader) Load(ctx context.Context, path string) (asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, &asset.LoadError{Path: path, Cause: err}
	}

	f, err := l.fsys.Open(path)
	if err != nil {
		return nil, &asset.LoadError{Path: path, Cause: err}
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, &asset.LoadError{Path: path, Cause: fmt.Errorf("%w: %v", asset.ErrDecode, err)}
	}
	return New(path, img), nil
}

package sound

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/alchemy-engine/alchemy/internal/core/asset"
)

// Extensions lists the file extensions the Loader can decode.
var Extensions = []string{"wav", "mp3"}

// Loader decodes whole clips into memory from a file system rooted at the
// asset directory.
type Loader struct {
	fsys fs.FS
	out  *Output
}

func NewLoader(fsys fs.FS, out *Output) *Loader {
	return &Loader{fsys: fsys, out: out}
}

func (l *Loader) Load(ctx context.Context, path string) (asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, &asset.LoadError{Path: path, Cause: err}
	}

	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, &asset.LoadError{Path: path, Cause: err}
	}

	buffer, err := decode(asset.Extension(path), data)
	if err != nil {
		return nil, &asset.LoadError{Path: path, Cause: fmt.Errorf("%w: %v", asset.ErrDecode, err)}
	}
	return New(path, buffer, l.out), nil
}

func decode(ext string, data []byte) (*beep.Buffer, error) {
	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch ext {
	case "wav":
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case "mp3":
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unsupported audio format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, err
	}
	return buffer, nil
}

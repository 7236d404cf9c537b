package cli

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemy-engine/alchemy/internal/config"
	"github.com/alchemy-engine/alchemy/internal/core/asset/texture"
	"github.com/alchemy-engine/alchemy/internal/core/protocol/protocoltest"
	"github.com/alchemy-engine/alchemy/internal/core/scene"
	"github.com/alchemy-engine/alchemy/internal/core/storage"
	"github.com/alchemy-engine/alchemy/internal/injector"
	"github.com/alchemy-engine/alchemy/internal/server"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := New(&out, &errOut).RootCommand()
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func writeScene(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "level.scene")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestInspect(t *testing.T) {
	path := writeScene(t, protocoltest.SealedScene("level-1"))

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "version:  1")
	assert.Contains(t, out, `name: string "level-1"`)

	out, err = execute(t, "inspect", "--header", path)
	require.NoError(t, err)
	assert.Contains(t, out, "checksum:")
	assert.NotContains(t, out, "level-1")
}

func TestInspectRejectsCorruptFile(t *testing.T) {
	sealed := protocoltest.SealedScene("level-1")
	sealed[len(sealed)-1] ^= 0xff

	_, err := execute(t, "inspect", writeScene(t, sealed))
	assert.ErrorIs(t, err, storage.ErrChecksumMismatch)

	_, err = execute(t, "inspect", writeScene(t, []byte("plain text")))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tex"), 0o755))
	f, err := os.Create(filepath.Join(root, "tex", "hero.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	view := scene.NewEntityView()
	view.AddTexture(texture.New("tex/hero.png", image.NewRGBA(image.Rect(0, 0, 4, 4))))
	hero := scene.NewEntity("hero")
	hero.SetView(view)
	sc := scene.New("level-1")
	sc.Add(hero, scene.NewEntity("camera"))
	path := writeScene(t, storage.Seal(scene.Marshal(sc)))

	out, err := execute(t, "verify", path, "--assets", root)
	require.NoError(t, err)
	assert.Contains(t, out, `scene "level-1" ok: 2 entities, 1 assets loaded`)

	_, err = execute(t, "verify", path, "--assets", t.TempDir())
	assert.Error(t, err)
}

func TestRemoteCommands(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "silent"
	cfg.Assets.Root = t.TempDir()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Server.HTTPAddr = "127.0.0.1:0"

	ctx := context.Background()
	rt, err := injector.InitializeRuntime(ctx, cfg)
	require.NoError(t, err)
	srv := server.New(rt)
	require.NoError(t, srv.Start(ctx))
	t.Cleanup(func() {
		_ = srv.Stop(context.Background())
		_ = rt.Close()
	})
	url := "ws://" + srv.Addr().String() + "/ws"

	sealed := protocoltest.SealedScene("level-1")
	out, err := execute(t, "push", "level-1", writeScene(t, sealed), "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "pushed level-1")

	out, err = execute(t, "list", "--url", url)
	require.NoError(t, err)
	assert.Equal(t, "level-1\n", out)

	dst := filepath.Join(t.TempDir(), "copy.scene")
	_, err = execute(t, "pull", "level-1", "-o", dst, "--url", url)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, sealed, got)

	_, err = execute(t, "pull", "missing", "-o", dst, "--url", url)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "explode")
	assert.Error(t, err)
}

package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/emporium/internal/broadcast"
	"github.com/roach88/emporium/internal/catalog"
	"github.com/roach88/emporium/internal/session"
	"github.com/roach88/emporium/internal/tabsync"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startHub serves a hub on a short socket path. Unix socket paths are
// limited to about 100 bytes, which t.TempDir can exceed.
func startHub(t *testing.T) (string, *broadcast.Hub) {
	t.Helper()
	dir, err := os.MkdirTemp("", "emp")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s")

	ctx, cancel := context.WithCancel(context.Background())
	hub := broadcast.NewHub(path, quietLogger())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-hub.Ready():
	case err := <-done:
		t.Fatalf("hub exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("hub not ready")
	}
	return path, hub
}

// openPage opens a storefront session on the hub and runs its sync loop
// until the test ends.
func openPage(t *testing.T, socket string) (*session.Session, <-chan session.View) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := session.Open(ctx, session.Options{
		Catalog: cat,
		Opener:  broadcast.Dialer{SocketPath: socket, Logger: quietLogger()},
		Channel: tabsync.DefaultChannelName,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	require.Equal(t, tabsync.Listening, s.Sync.State())

	views := make(chan session.View, 16)
	stop := s.WatchImages(func(v session.View) { views <- v })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		stop()
		cancel()
		<-done
		s.Close(context.Background())
	})
	return s, views
}

func waitView(t *testing.T, views <-chan session.View) session.View {
	t.Helper()
	select {
	case v := <-views:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for image change")
		return session.View{}
	}
}

func waitConnections(t *testing.T, hub *broadcast.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Connections() >= n }, 5*time.Second, 10*time.Millisecond)
}

func TestImageSetPayloadReachesPage(t *testing.T) {
	socket, hub := startHub(t)
	_, views := openPage(t, socket)
	waitConnections(t, hub, 1)
	cfg := testEnv(t, "")

	out, err := execute(t, cfg, "image", "set", "6", "data:image/jpeg;base64,QUJD", "--socket", socket)
	require.NoError(t, err)
	assert.Contains(t, out, "Fresh Milk")

	v := waitView(t, views)
	assert.Equal(t, int64(6), v.ID)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", v.Image)
	assert.Equal(t, session.SourceStore, v.ImageSource)
}

func TestImageSetFileIsOptimized(t *testing.T) {
	socket, hub := startHub(t)
	_, views := openPage(t, socket)
	waitConnections(t, hub, 1)
	cfg := testEnv(t, "")

	img := image.NewRGBA(image.Rect(0, 0, 1000, 750))
	for x := 0; x < 1000; x++ {
		img.Set(x, x%750, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	file := filepath.Join(t.TempDir(), "bananas.png")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o600))

	out, err := execute(t, cfg, "--format", "json", "image", "set", "1", file, "--socket", socket)
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	up := resp.Data.(map[string]interface{})["upload"].(map[string]interface{})
	optimized := up["optimized"].(map[string]interface{})
	assert.Equal(t, float64(800), optimized["width"])
	assert.Equal(t, float64(600), optimized["height"])
	assert.True(t, strings.HasPrefix(up["image_path"].(string), "assets/images/products/fresh/"))

	v := waitView(t, views)
	assert.Equal(t, int64(1), v.ID)
	assert.True(t, strings.HasPrefix(v.Image, "data:image/jpeg;base64,"))
}

func TestImageSetRejectsTinyFile(t *testing.T) {
	socket, _ := startHub(t)
	cfg := testEnv(t, "")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	file := filepath.Join(t.TempDir(), "tiny.png")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o600))

	out, err := execute(t, cfg, "image", "set", "1", file, "--socket", socket)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Image too small")
}

func TestImageDeleteReachesPage(t *testing.T) {
	socket, hub := startHub(t)
	page, views := openPage(t, socket)
	waitConnections(t, hub, 1)
	cfg := testEnv(t, "")

	_, err := execute(t, cfg, "image", "delete", "6", "--socket", socket)
	require.NoError(t, err)

	v := waitView(t, views)
	assert.Equal(t, int64(6), v.ID)
	assert.Equal(t, session.SourceCatalog, v.ImageSource)
	assert.False(t, page.Images.Has(6))
}

func TestImageSyncCollectsPageImages(t *testing.T) {
	socket, hub := startHub(t)
	page, _ := openPage(t, socket)
	waitConnections(t, hub, 1)
	page.Sync.UpdateImage(context.Background(), 1, "data:image/jpeg;base64,QUJD")
	cfg := testEnv(t, "")

	out, err := execute(t, cfg, "--format", "json", "image", "sync", "--wait", "500ms", "--socket", socket)
	require.NoError(t, err)

	// The page answers with its whole map, and every entry is re-set.
	data := decodeResponse(t, out).Data.(map[string]interface{})
	assert.Equal(t, data["images"], data["updated"])
	assert.NotZero(t, data["updated"])
	stats := data["sync"].(map[string]interface{})
	assert.GreaterOrEqual(t, stats["received"].(float64), float64(1))
}

// lockedBuffer is a bytes.Buffer safe for a writer and a poller.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestImageWatchPrintsChanges(t *testing.T) {
	socket, hub := startHub(t)
	cfg := testEnv(t, "")

	out := &lockedBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", cfg, "image", "watch", "--no-sync", "--socket", socket})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()
	waitConnections(t, hub, 1)

	_, err := execute(t, cfg, "image", "set", "7", "data:image/jpeg;base64,RUdH", "--socket", socket)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Free Range Eggs")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, out.String(), "7\tFree Range Eggs\tstore")
}

func TestImageCommandsNeedHub(t *testing.T) {
	cfg := testEnv(t, "")
	socket := filepath.Join(t.TempDir(), "missing.sock")

	_, err := execute(t, cfg, "image", "set", "1", "payload", "--socket", socket)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "hub not reachable")
}

func TestImageSetRejectsEmptyPayload(t *testing.T) {
	socket, _ := startHub(t)
	cfg := testEnv(t, "")

	_, err := execute(t, cfg, "image", "set", "7", "", "--socket", socket)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "image payload is empty")
}

func TestImageSetUnknownProduct(t *testing.T) {
	socket, _ := startHub(t)
	cfg := testEnv(t, "")

	_, err := execute(t, cfg, "image", "set", "999", "payload", "--socket", socket)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestHubCommandServesUntilCancelled(t *testing.T) {
	cfg := testEnv(t, "")
	dir, err := os.MkdirTemp("", "emp")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "s")

	out := &lockedBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", cfg, "hub", "--socket", socket})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Hub listening on "+socket)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}
}

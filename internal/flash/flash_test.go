package flash

import (
	"encoding/base64"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/config"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/imaging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/session"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/transport"
)

// fakePort is a minimal scripted transport.Port, mirroring the one
// used by the session package's own tests.
type fakePort struct {
	mu      sync.Mutex
	toWrite []byte
	written strings.Builder
}

func (p *fakePort) queue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toWrite = append(p.toWrite, b...)
}

func (p *fakePort) Read(buf []byte) (int, error) {
	for {
		p.mu.Lock()
		if len(p.toWrite) > 0 {
			n := copy(buf[:1], p.toWrite[:1])
			p.toWrite = p.toWrite[n:]
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
}

func (p *fakePort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(buf)
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) SetReadTimeout(time.Duration) {}

func solidIconBase64(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	buf, err := imaging.EncodeJPEG(img)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(buf)
}

func TestRunComposesWipesAndUploadsPerDirectory(t *testing.T) {
	p := &fakePort{}
	tr := transport.New(p)
	s := session.New(tr)

	iconA := solidIconBase64(t, color.RGBA{R: 255, A: 255})
	iconB := solidIconBase64(t, color.RGBA{B: 255, A: 255})
	cfg := &config.Config{
		Buttons: map[string]config.ButtonConfig{
			"/p/0": {Icon: &iconA},
			"/p/1": {Icon: &iconB},
		},
	}

	p.queue([]byte("2li320 240 4 2 4\n"))
	p.queue([]byte("2ok\n")) // remove_folder("/")
	p.queue([]byte("2rd\n"))
	p.queue([]byte("2ok\n")) // set_icon("/p/aio.jpg", ...)

	require.NoError(t, Run(s, cfg))

	written := p.written.String()
	assert.True(t, strings.Contains(written, "2df /"))
	assert.True(t, strings.Contains(written, "2wi /p/aio.jpg"))
}

func TestGroupByDirectorySkipsButtonsWithoutIcon(t *testing.T) {
	cmd := "echo"
	buttons := map[string]config.ButtonConfig{
		"/p/0": {Command: &cmd},
	}
	groups := groupByDirectory(buttons)
	assert.Empty(t, groups)
}

func TestCompositePlacesIconsAtGridCells(t *testing.T) {
	iconA := solidIconBase64(t, color.RGBA{R: 255, A: 255})
	iconB := solidIconBase64(t, color.RGBA{B: 255, A: 255})

	info := session.DeviceInfo{
		Width: 320, Height: 240, ButtonsPerRow: 4, NumOfRows: 2,
		GapSize: 4, ButtonSize: 77, StatusBarHeight: 78,
	}
	buttons := []indexedButton{{index: 0, icon: iconA}, {index: 1, icon: iconB}}

	canvas := composite(info, buttons)
	assert.Equal(t, 320, canvas.Bounds().Dx())
	assert.Equal(t, 158, canvas.Bounds().Dy())

	r, _, _, _ := canvas.At(10, 10).RGBA()
	assert.NotZero(t, r)
	_, _, b, _ := canvas.At(90, 10).RGBA()
	assert.NotZero(t, b)
}

func TestCompositeSkipsOutOfGridIndex(t *testing.T) {
	icon := solidIconBase64(t, color.White)
	info := session.DeviceInfo{
		Width: 320, Height: 240, ButtonsPerRow: 4, NumOfRows: 2,
		GapSize: 4, ButtonSize: 77, StatusBarHeight: 78,
	}
	buttons := []indexedButton{{index: 99, icon: icon}}

	assert.NotPanics(t, func() { composite(info, buttons) })
}

// Package flash implements the flash pipeline: composite the buttons
// configured for each on-device directory into one all-in-one (AIO)
// image per directory, wipe the device, and upload the composites.
package flash

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/config"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/imaging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/session"
)

// Run composites and uploads one AIO image per configured button
// directory, after wiping the device. Per-directory upload failures
// are logged and the batch continues; a wipe failure aborts the flash.
func Run(s *session.Session, cfg *config.Config) error {
	info, err := s.GetInfo()
	if err != nil {
		return fmt.Errorf("flash: get_info: %w", err)
	}

	groups := groupByDirectory(cfg.Buttons)

	composites := make(map[string]*image.RGBA, len(groups))
	for dir, buttons := range groups {
		composites[dir] = composite(info, buttons)
	}

	if err := s.RemoveFolder("/"); err != nil {
		return fmt.Errorf("flash: wipe device: %w", err)
	}

	dirs := make([]string, 0, len(composites))
	for dir := range composites {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	for _, dir := range dirs {
		path := dir + "/aio.jpg"
		if dir == "/" {
			path = "/aio.jpg"
		}
		if err := s.SetIcon(path, composites[dir]); err != nil {
			logging.Flash.Printf("upload %s: %v", path, err)
			continue
		}
	}

	return nil
}

type indexedButton struct {
	index int
	icon  string
}

// groupByDirectory buckets button paths carrying an icon by their
// containing directory.
func groupByDirectory(buttons map[string]config.ButtonConfig) map[string][]indexedButton {
	groups := make(map[string][]indexedButton)
	for path, btn := range buttons {
		if btn.Icon == nil {
			continue
		}
		idx, err := config.Index(path)
		if err != nil {
			logging.Flash.Printf("skip %s: %v", path, err)
			continue
		}
		dir := config.Dir(path)
		groups[dir] = append(groups[dir], indexedButton{index: idx, icon: *btn.Icon})
	}
	return groups
}

// composite renders one directory's buttons onto a black canvas sized
// width x (height - gap - status_bar_height), resizing each icon to
// button_size x button_size with Lanczos3 and placing it at its grid
// cell. Decode failures and out-of-grid indices are logged and skipped.
func composite(info session.DeviceInfo, buttons []indexedButton) *image.RGBA {
	canvasH := int(info.Height - info.GapSize - info.StatusBarHeight)
	canvas := image.NewRGBA(image.Rect(0, 0, int(info.Width), canvasH))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	for _, b := range buttons {
		if b.index < 0 || uint32(b.index) >= info.ButtonsPerRow*info.NumOfRows {
			logging.Flash.Printf("index %d out of grid", b.index)
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(b.icon)
		if err != nil {
			logging.Flash.Printf("index %d: base64 decode: %v", b.index, err)
			continue
		}
		img, err := imaging.Decode(raw)
		if err != nil {
			logging.Flash.Printf("index %d: image decode: %v", b.index, err)
			continue
		}

		resized := imaging.ResizeExact(img, int(info.ButtonSize), int(info.ButtonSize))

		col := b.index % int(info.ButtonsPerRow)
		row := b.index / int(info.ButtonsPerRow)
		cell := int(info.ButtonSize + info.GapSize)
		origin := image.Pt(col*cell, row*cell)
		dstRect := image.Rectangle{Min: origin, Max: origin.Add(resized.Bounds().Size())}
		draw.Draw(canvas, dstRect, resized, image.Point{}, draw.Src)
	}

	return canvas
}

// Package session implements the stateful device session: get_info,
// get_icon, set_icon, set_status, list_directory, create/remove
// folder, set_profile, remove_icon, backed by a transport.Transport
// for arbitrated serial access.
package session

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/imaging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/transport"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/wire"
)

// Session is the live object owning a serial handle (via Transport)
// and exposing device operations. Callers from any goroutine may
// invoke its methods concurrently; transport.Do arbitrates the
// underlying port.
type Session struct {
	t *transport.Transport

	infoMu sync.Mutex
	info   *DeviceInfo

	icons  *iconCache
	dirs   *directoryIndex
	status *statusImage
}

// New wraps an already-started Transport as a device session.
func New(t *transport.Transport) *Session {
	return &Session{
		t:      t,
		icons:  newIconCache(),
		dirs:   &directoryIndex{},
		status: &statusImage{},
	}
}

// GetInfo retrieves (or returns the memoized) device layout.
func (s *Session) GetInfo() (DeviceInfo, error) {
	s.infoMu.Lock()
	if s.info != nil {
		defer s.infoMu.Unlock()
		return *s.info, nil
	}
	s.infoMu.Unlock()

	var resp wire.Frame
	err := s.t.Do(func(ch *transport.Channel) error {
		if err := ch.WriteFrame(wire.New("li")); err != nil {
			return err
		}
		f, err := ch.ReadFrame()
		if err != nil {
			return err
		}
		resp = f
		return nil
	})
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("%w: get_info: %v", ErrTransport, err)
	}
	if resp.Type != "li" || len(resp.Args) != 5 {
		return DeviceInfo{}, fmt.Errorf("%w: get_info: unexpected response %q", ErrProtocol, resp.Type)
	}

	vals := make([]uint64, 5)
	for i, a := range resp.Args {
		v, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return DeviceInfo{}, fmt.Errorf("%w: get_info: bad field %q: %v", ErrProtocol, a, err)
		}
		vals[i] = v
	}

	info, err := deriveInfo(uint32(vals[0]), uint32(vals[1]), uint32(vals[2]), uint32(vals[3]), uint32(vals[4]))
	if err != nil {
		return DeviceInfo{}, err
	}

	s.infoMu.Lock()
	s.info = &info
	s.infoMu.Unlock()
	return info, nil
}

// GetIcon returns the icon at path, from cache if present, else
// fetched over the wire and cached.
func (s *Session) GetIcon(path string) (image.Image, error) {
	if img, ok := s.icons.get(path); ok {
		return img, nil
	}

	var payload []byte
	err := s.t.Do(func(ch *transport.Channel) error {
		if err := ch.WriteFrame(wire.New("ri", path)); err != nil {
			return err
		}
		f, err := ch.ReadFrame()
		if err != nil {
			return err
		}
		if f.Type != "rd?" || len(f.Args) != 1 {
			return fmt.Errorf("%w: get_icon: unexpected response %q", ErrProtocol, f.Type)
		}
		size, err := strconv.ParseUint(f.Args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: get_icon: bad size %q: %v", ErrProtocol, f.Args[0], err)
		}

		if err := ch.WriteFrame(wire.New("rd")); err != nil {
			return err
		}
		buf := make([]byte, size)
		if err := ch.ReadExact(buf); err != nil {
			return err
		}
		payload = buf
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get_icon: %v", ErrTransport, err)
	}

	img, decErr := imaging.Decode(payload)
	if decErr != nil {
		return nil, fmt.Errorf("%w: get_icon: %v", ErrImage, decErr)
	}

	s.icons.put(path, img)
	return img, nil
}

// SetIcon pushes img to path, updating the cache and directory index
// only after the device's terminal `ok`.
func (s *Session) SetIcon(path string, img image.Image) error {
	buf, err := imaging.EncodeJPEG(img)
	if err != nil {
		return fmt.Errorf("%w: set_icon: %v", ErrImage, err)
	}

	err = s.t.Do(func(ch *transport.Channel) error {
		return writeAndUpload(ch, wire.New("wi", path, strconv.Itoa(len(buf))), buf)
	})
	if err != nil {
		return classifyWireErr(err, "set_icon")
	}

	s.icons.put(path, img)
	s.dirs.addAncestors(path)
	return nil
}

// writeAndUpload runs the common request -> `rd` -> payload -> `ok`
// handshake shared by set_icon and set_status.
func writeAndUpload(ch *transport.Channel, req wire.Frame, payload []byte) error {
	if err := ch.WriteFrame(req); err != nil {
		return err
	}
	f, err := ch.ReadFrame()
	if err != nil {
		return err
	}
	if f.Type != "rd" {
		return fmt.Errorf("%w: expected rd, got %q", ErrProtocol, f.Type)
	}
	if err := ch.WriteRaw(payload); err != nil {
		return err
	}
	f, err = ch.ReadFrame()
	if err != nil {
		return err
	}
	if f.Type != "ok" {
		return fmt.Errorf("%w: expected ok, got %q", ErrDevice, f.Type)
	}
	return nil
}

// SetStatus pushes the minimal dirty-rectangle patch between img and
// the last displayed status image.
func (s *Session) SetStatus(img image.Image) error {
	info, err := s.GetInfo()
	if err != nil {
		return err
	}
	if !imaging.SameDimensions(img, int(info.Width), int(info.StatusBarHeight)) {
		return fmt.Errorf("%w: set_status: image is %v, want %dx%d", ErrImage, img.Bounds(), info.Width, info.StatusBarHeight)
	}

	prior, had := s.status.get()

	x, y := 0, 0
	patchImg := img
	if had {
		p, perr := imaging.FindPatch(prior, img)
		if perr != nil {
			if _, noDiff := perr.(imaging.ErrNoDiff); noDiff {
				return nil
			}
			return fmt.Errorf("%w: set_status: %v", ErrImage, perr)
		}
		x, y, patchImg = p.X, p.Y, p.Image
	}

	buf, err := imaging.EncodeJPEG(patchImg)
	if err != nil {
		return fmt.Errorf("%w: set_status: %v", ErrImage, err)
	}

	err = s.t.Do(func(ch *transport.Channel) error {
		return writeAndUpload(ch, wire.New("ss", strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(len(buf))), buf)
	})
	if err != nil {
		return classifyWireErr(err, "set_status")
	}

	s.status.set(img)
	return nil
}

// GetStatus returns the last successfully-displayed status image.
func (s *Session) GetStatus() (image.Image, error) {
	img, ok := s.status.get()
	if !ok {
		return nil, fmt.Errorf("%w: get_status: no status has been set", ErrState)
	}
	return img, nil
}

// ListDirectory retrieves (or returns the memoized) set of on-device
// directories.
func (s *Session) ListDirectory() ([]string, error) {
	if dirs, ok := s.dirs.snapshot(); ok {
		return dirs, nil
	}

	var resp wire.Frame
	err := s.t.Do(func(ch *transport.Channel) error {
		if err := ch.WriteFrame(wire.New("ld")); err != nil {
			return err
		}
		f, err := ch.ReadFrame()
		if err != nil {
			return err
		}
		resp = f
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list_directory: %v", ErrTransport, err)
	}
	if resp.Type != "ld" {
		return nil, fmt.Errorf("%w: list_directory: unexpected response %q", ErrProtocol, resp.Type)
	}

	s.dirs.setAll(resp.Args)
	return resp.Args, nil
}

// SetProfile switches the device's active profile.
func (s *Session) SetProfile(name string) error {
	return s.simpleOK("sp", "set_profile", name)
}

// CreateFolder creates a folder, then adds its ancestors to the index.
func (s *Session) CreateFolder(path string) error {
	if err := s.simpleOK("cf", "create_folder", path); err != nil {
		return err
	}
	s.dirs.addAncestors(path)
	return nil
}

// RemoveIcon removes an icon, then prefix-prunes the directory index.
func (s *Session) RemoveIcon(path string) error {
	if err := s.simpleOK("di", "remove_icon", path); err != nil {
		return err
	}
	s.dirs.prunePrefix(path)
	return nil
}

// RemoveFolder removes a folder (and everything under it), then
// prefix-prunes the directory index.
func (s *Session) RemoveFolder(path string) error {
	if err := s.simpleOK("df", "remove_folder", path); err != nil {
		return err
	}
	s.dirs.prunePrefix(path)
	return nil
}

func (s *Session) simpleOK(tag, opName, arg string) error {
	err := s.t.Do(func(ch *transport.Channel) error {
		if err := ch.WriteFrame(wire.New(tag, arg)); err != nil {
			return err
		}
		f, err := ch.ReadFrame()
		if err != nil {
			return err
		}
		if f.Type != "ok" {
			return fmt.Errorf("%w: expected ok, got %q", ErrDevice, f.Type)
		}
		return nil
	})
	if err != nil {
		return classifyWireErr(err, opName)
	}
	return nil
}

func classifyWireErr(err error, op string) error {
	if errors.Is(err, ErrProtocol) || errors.Is(err, ErrDevice) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}

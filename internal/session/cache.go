package session

import (
	"image"
	"sync"
)

// iconCache is the write-through cache from on-device path to the last
// decoded image pushed or fetched. No eviction: device memory bounds
// the working set.
type iconCache struct {
	mu    sync.Mutex
	icons map[string]image.Image
}

func newIconCache() *iconCache {
	return &iconCache{icons: make(map[string]image.Image)}
}

func (c *iconCache) get(path string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.icons[path]
	return img, ok
}

func (c *iconCache) put(path string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.icons[path] = img
}

// statusImage holds the last successfully-displayed status-bar image.
type statusImage struct {
	mu  sync.Mutex
	img image.Image
}

func (s *statusImage) get() (image.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img, s.img != nil
}

func (s *statusImage) set(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = img
}

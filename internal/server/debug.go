package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
)

// DebugServer is an optional loopback HTTP endpoint for supervisors
// that want a human/HTTP-reachable health probe without speaking the
// control channel's line-JSON protocol. It never touches the serial
// port directly; /debug/state calls the session's get_info, which
// sends an `li` request through the transport the first time and
// returns the memoized layout afterwards.
type DebugServer struct {
	sess *Server
	srv  *http.Server
}

// NewDebugServer builds a gin router exposing /healthz and
// /debug/state over s's session.
func NewDebugServer(s *Server) *DebugServer {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/debug/state", func(c *gin.Context) {
		info, err := s.sess.GetInfo()
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"info_available": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"info_available":    true,
			"width":             info.Width,
			"height":            info.Height,
			"button_size":       info.ButtonSize,
			"status_bar_height": info.StatusBarHeight,
		})
	})
	return &DebugServer{sess: s, srv: &http.Server{Handler: r}}
}

// ListenAndServe binds addr (typically a loopback address) and serves
// until Close is called.
func (d *DebugServer) ListenAndServe(addr string) error {
	d.srv.Addr = addr
	logging.TCP.Printf("debug endpoint listening on %s", addr)
	err := d.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops the debug HTTP server.
func (d *DebugServer) Close() error {
	return d.srv.Close()
}

package supervisor

import (
	"context"
	"os/exec"
	"time"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
)

// restartBackoff is the pause before relaunching a status-producer
// subprocess that has exited, to avoid a hot crash loop.
const restartBackoff = 2 * time.Second

// SuperviseStatusProducer launches command with args and keeps
// relaunching it whenever it exits, until ctx is cancelled. Intended
// for a long-lived helper process that renders and pushes status-bar
// images over the TCP status channel.
func SuperviseStatusProducer(ctx context.Context, command string, args []string) {
	for {
		if ctx.Err() != nil {
			return
		}

		cmd := exec.CommandContext(ctx, command, args...)
		logging.Supervisor.Printf("starting status producer %q", command)
		if err := cmd.Start(); err != nil {
			logging.Supervisor.Printf("status producer failed to start: %v", err)
		} else {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				logging.Supervisor.Printf("status producer exited: %v", err)
			}
		}

		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartBackoff):
		}
	}
}

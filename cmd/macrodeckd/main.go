// Command macrodeckd is the host-side driver and control daemon for
// the macro deck: it opens the serial connection, runs the device
// session and TCP control server, and offers list/start/stop/flash/
// tools subcommands for everything else that talks to it.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/config"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/dispatch"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/logging"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/monitorui"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/portscan"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/server"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/session"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/supervisor"
	"github.com/nohackjustnoobb/Macro-Deck-Driver/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = cmdList(os.Args[2:])
	case "start":
		err = cmdStart(os.Args[2:])
	case "stop":
		err = cmdStop(os.Args[2:])
	case "flash":
		err = cmdFlash(os.Args[2:])
	case "tools":
		err = cmdTools(os.Args[2:])
	case "monitor":
		err = cmdMonitor(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "macrodeckd: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "macrodeckd: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: macrodeckd <command> [flags]

commands:
  list                          list available serial ports
  start                         start the driver
  stop                          stop a running instance over its control channel
  flash                         trigger a flash of the configured button icons
  tools write-icons-to-config   fold a directory of icons into a config file
  monitor                       watch live status-bar clicks in a terminal UI`)
}

// cmdMonitor runs a terminal UI that connects to a running instance's
// control channel and displays status-bar clicks as they arrive.
func cmdMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	tcpPort := fs.Int("tcp-port", server.DefaultPort, "TCP control channel port")
	fs.Parse(args)

	addr := fmt.Sprintf("127.0.0.1:%d", *tcpPort)
	p := tea.NewProgram(monitorui.New(addr))
	_, err := p.Run()
	return err
}

// cmdList enumerates available serial ports.
func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	names, err := portscan.List()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

// cmdStart resolves the serial port, wires up the session/dispatcher/
// server, and either runs in the foreground or re-execs itself
// detached in the background.
func cmdStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	port := fs.String("port", "", "serial port name (auto-detected if omitted)")
	configPath := fs.String("config-path", config.DefaultPath, "path to the button/status config file")
	tcpPort := fs.Int("tcp-port", server.DefaultPort, "TCP control channel port")
	debugAddr := fs.String("debug-addr", "", "optional loopback address for the HTTP debug endpoint, e.g. 127.0.0.1:8965")
	foreground := fs.Bool("foreground", false, "run in the foreground instead of detaching")
	statusProducer := fs.String("status-producer", "", "optional external command that renders and pushes status-bar images")
	fs.Parse(args)

	if !*foreground {
		return supervisor.StartBackground(passthroughArgs(fs))
	}

	if err := supervisor.WritePIDFile(); err != nil {
		logging.Supervisor.Printf("write pid file: %v", err)
	}
	defer supervisor.RemovePIDFile()

	name := *port
	if name == "" {
		detected, ok := portscan.AutoDetect()
		if !ok {
			return fmt.Errorf("start: no --port given and auto-detect found no single candidate")
		}
		name = detected
	}
	name = portscan.ResolveDeviceName(name)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	raw, err := transport.OpenSerial(name)
	if err != nil {
		return fmt.Errorf("start: open %s: %w", name, err)
	}
	tr := transport.New(raw)
	defer tr.Close()

	sess := session.New(tr)
	d := buildDispatcher(cfg)
	tr.Start(dispatch.EventHandler(d))

	srv := server.New(sess, d, *configPath)

	if *statusProducer != "" {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		go supervisor.SuperviseStatusProducer(ctx, *statusProducer, nil)
	}

	if *debugAddr != "" {
		debugSrv := server.NewDebugServer(srv)
		go func() {
			if err := debugSrv.ListenAndServe(*debugAddr); err != nil {
				logging.TCP.Printf("debug endpoint: %v", err)
			}
		}()
		defer debugSrv.Close()
	}

	addr := fmt.Sprintf(":%d", *tcpPort)
	return srv.ListenAndServe(addr)
}

// buildDispatcher registers every configured button and the optional
// status-click handler as subprocess-launching actions.
func buildDispatcher(cfg *config.Config) *dispatch.Dispatcher {
	d := dispatch.New()
	for path, b := range cfg.Buttons {
		if b.Command == nil {
			continue
		}
		d.RegisterButton(path, dispatch.SpawnCommand(*b.Command, b.Args))
	}
	if cfg.Status != nil && cfg.Status.Command != nil {
		command, args := *cfg.Status.Command, cfg.Status.Args
		d.RegisterStatus(func(x uint32) {
			dispatch.SpawnCommand(command, append(append([]string{}, args...), strconv.FormatUint(uint64(x), 10)))()
		})
	}
	return d
}

// cmdStop connects to the control channel and sends a stop command.
func cmdStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	tcpPort := fs.Int("tcp-port", server.DefaultPort, "TCP control channel port")
	fs.Parse(args)

	return sendCommand(*tcpPort, "stop", nil)
}

// cmdFlash connects to the control channel and requests a flash,
// optionally naming a config file other than the daemon's default.
func cmdFlash(args []string) error {
	fs := flag.NewFlagSet("flash", flag.ExitOnError)
	tcpPort := fs.Int("tcp-port", server.DefaultPort, "TCP control channel port")
	configPath := fs.String("config-path", "", "config file to flash (daemon's own config if omitted)")
	fs.Parse(args)

	var value json.RawMessage
	if *configPath != "" {
		encoded, err := json.Marshal(*configPath)
		if err != nil {
			return err
		}
		value = encoded
	}
	return sendCommand(*tcpPort, "flash", value)
}

func sendCommand(tcpPort int, typ string, value json.RawMessage) error {
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", tcpPort))
	if err != nil {
		return fmt.Errorf("connect to control channel: %w", err)
	}
	defer conn.Close()

	msg := struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value,omitempty"`
	}{Type: typ, Value: value}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = conn.Write(data)
	return err
}

// cmdTools dispatches the maintenance subcommands.
func cmdTools(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("tools: missing subcommand (write-icons-to-config)")
	}
	switch args[0] {
	case "write-icons-to-config":
		return cmdWriteIconsToConfig(args[1:])
	default:
		return fmt.Errorf("tools: unknown subcommand %q", args[0])
	}
}

// cmdWriteIconsToConfig walks iconsDir and folds every icon file into
// the config's buttons map, keyed by the on-device path derived from
// its location under iconsDir (directory structure and integer
// filename stem become the canonical button path).
func cmdWriteIconsToConfig(args []string) error {
	fs := flag.NewFlagSet("write-icons-to-config", flag.ExitOnError)
	iconsDir := fs.String("icons-dir", "", "directory of icon files, laid out like the on-device button tree")
	configPath := fs.String("config-path", config.DefaultPath, "config file to update (created if missing)")
	fs.Parse(args)

	if *iconsDir == "" {
		return fmt.Errorf("write-icons-to-config: --icons-dir is required")
	}

	var cfg *config.Config
	if _, statErr := os.Stat(*configPath); errors.Is(statErr, os.ErrNotExist) {
		cfg = &config.Config{Buttons: make(map[string]config.ButtonConfig)}
	} else {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	icons, err := collectIconPaths(*iconsDir)
	if err != nil {
		return fmt.Errorf("write-icons-to-config: %w", err)
	}

	for _, iconPath := range icons {
		buttonPath, err := devicePathFor(*iconsDir, iconPath)
		if err != nil {
			logging.Dispatch.Printf("write-icons-to-config: skipping %s: %v", iconPath, err)
			continue
		}

		data, err := os.ReadFile(iconPath)
		if err != nil {
			logging.Dispatch.Printf("write-icons-to-config: read %s: %v", iconPath, err)
			continue
		}
		encoded := base64.StdEncoding.EncodeToString(data)

		existing := cfg.Buttons[buttonPath]
		existing.Icon = &encoded
		cfg.Buttons[buttonPath] = existing
	}

	if err := config.Save(*configPath, cfg); err != nil {
		return err
	}

	abs, err := filepath.Abs(*configPath)
	if err == nil {
		if err := clipboard.WriteAll(abs); err != nil {
			logging.Dispatch.Printf("write-icons-to-config: copy path to clipboard: %v", err)
		}
	}
	return nil
}

// collectIconPaths walks dir recursively, skipping dot-files and
// directories, and returns every regular file found.
func collectIconPaths(dir string) ([]string, error) {
	var out []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

// devicePathFor derives a canonical button path from an icon file's
// location under root: the directory structure is kept, the
// extension is dropped, and the remaining filename stem must be the
// button's integer index within its directory.
func devicePathFor(root, iconPath string) (string, error) {
	rel, err := filepath.Rel(root, iconPath)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	buttonPath := "/" + rel
	if err := config.ValidatePath(buttonPath); err != nil {
		return "", err
	}
	return buttonPath, nil
}

// passthroughArgs reconstructs the flag arguments a background
// instance should be started with, from the already-parsed flag set
// fs (minus --foreground, which the detached child is given
// explicitly by the supervisor).
func passthroughArgs(fs *flag.FlagSet) []string {
	var out []string
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "foreground" {
			return
		}
		out = append(out, "--"+f.Name, f.Value.String())
	})
	return out
}

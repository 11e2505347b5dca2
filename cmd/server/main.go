package main

import (
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gridfort/internal/config"
	"gridfort/internal/console"
	"gridfort/internal/game"
	"gridfort/internal/server"
	"gridfort/internal/transport"
)

// defaultMap is used when no map file is found, so a bare checkout still
// boots into something playable.
const defaultMap = `###################################
#R       +                 a     B#
#R  r                         b  B#
#R  r   F                f    b  B#
#R  r                         b  B#
#R       a                 +     B#
###################################`

var (
	flagConfig string
	flagPort   int
	flagMap    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gridfort-server",
		Short: "Authoritative game server for top-down 2D team combat",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "config file (yaml)")
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "UDP port override")
	serveCmd.Flags().StringVarP(&flagMap, "map", "m", "", "map file override")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "loaded environment from .env")
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort > 0 {
		cfg.Port = flagPort
	}
	if flagMap != "" {
		cfg.MapFile = flagMap
	}

	ep := netip.AddrPortFrom(netip.IPv4Unspecified(), uint16(cfg.Port))
	socket, err := transport.Bind(ep)
	if err != nil {
		return err
	}
	defer socket.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Frame loop: the server advances its own fixed ticks internally. A
	// queued level change tears the instance down and starts a fresh one on
	// the same socket, carrying the ban list over.
	const frame = 4 * time.Millisecond
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	var carriedBans []string
	for {
		mapData, mapName := loadMapFile(log, cfg)
		m := game.LoadMap(mapName, mapData)

		srv, err := server.New(log, cfg, socket, m)
		if err != nil {
			return err
		}
		srv.RestoreBans(carriedBans)
		srv.SetArchiveSaver(makeArchiveSaver(log, cfg))

		last := time.Now()
	frames:
		for {
			select {
			case <-sigCh:
				srv.Stop("server shutting down")
				return nil
			case now := <-ticker.C:
				dt := now.Sub(last).Seconds()
				last = now
				srv.Update(dt)
				if stopped, err := srv.Stopped(); stopped {
					if err != nil {
						return err
					}
					break frames
				}
			}
		}

		next := srv.NextLevel()
		if next == "" {
			return nil
		}
		carriedBans = srv.BannedIPs()
		cfg.MapFile = filepath.Join("maps", next+".txt")
		log.Info().Str("map", next).Msg("changing level")
	}
}

func loadMapFile(log zerolog.Logger, cfg config.ServerConfig) ([]byte, string) {
	path := filepath.Join(cfg.DataDir, cfg.MapFile)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Str("path", path).Msg("map file not found, using built-in map")
		return []byte(defaultMap), "ctf_default"
	}
	name := strings.TrimSuffix(filepath.Base(cfg.MapFile), filepath.Ext(cfg.MapFile))
	return data, name
}

// makeArchiveSaver writes the archive cvars and ban list as a line-oriented
// script that the next start can replay.
func makeArchiveSaver(log zerolog.Logger, cfg config.ServerConfig) server.ArchiveSaver {
	return func(hostname string, port int, cvars []*console.Cvar, bannedIPs []string) error {
		var b strings.Builder
		fmt.Fprintf(&b, "// generated at shutdown - %s:%d\n", hostname, port)
		for _, c := range cvars {
			fmt.Fprintf(&b, "cvar %s %q\n", c.Name(), c.String())
		}
		for _, ip := range bannedIPs {
			fmt.Fprintf(&b, "ban %s\n", ip)
		}
		path := filepath.Join(cfg.DataDir, "server.cfg")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("archived server state")
		return nil
	}
}

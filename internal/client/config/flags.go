package config

import (
	"flag"
	"os"
	"time"

	"github.com/mihailsb/docsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the sync server (default from Config)
//	-d string   path of the local sqlite database
//	-i int      online check interval in seconds (default from Config)
//	-sync bool  remote synchronization toggle; pass -sync=false to keep
//	            documents local-only
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-sync"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the sync server")
	fs.StringVar(&cfg.DatabaseFile, "d", cfg.DatabaseFile, "path of the local database file")
	fs.BoolVar(&cfg.SyncEnabled, "sync", cfg.SyncEnabled, "enable remote synchronization")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}

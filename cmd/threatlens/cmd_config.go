package main

// ---------------------------------------------------------------------------
// cmd_config.go — show or initialize configuration
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"os"

	"github.com/threatlens-project/threatlens/internal/core"
)

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	initFlag := fs.Bool("init", false, "Write a default config file")
	showFlag := fs.Bool("show", false, "Print the effective configuration")
	fs.Parse(args)

	path := envConfig(*configPath)

	if *initFlag {
		if _, err := os.Stat(path); err == nil {
			errorf("%s already exists — remove it first or choose another path", path)
		}
		data, err := core.DefaultConfig().Marshal()
		if err != nil {
			errorf("marshaling default config: %v", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			errorf("writing %s: %v", path, err)
		}
		fmt.Printf("wrote default config to %s\n", path)
		return
	}

	if *showFlag {
		cfg, err := core.LoadConfig(path)
		if err != nil {
			errorf("loading config: %v", err)
		}
		data, err := cfg.Marshal()
		if err != nil {
			errorf("marshaling config: %v", err)
		}
		os.Stdout.Write(data)
		return
	}

	cmdHelp("config")
}

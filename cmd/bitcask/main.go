package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ananthvk/bitcask"
	"github.com/ananthvk/bitcask/internal/shell"
	"github.com/spf13/afero"
)

func main() {
	configPath := flag.String("config", "bitcask.yaml", "path to the YAML config file")
	dataDir := flag.String("db", "", "data directory, overrides data_dir from the config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "(error) CONFIG: %s\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	logger, err := newLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "(error) CONFIG: %s\n", err)
		os.Exit(1)
	}

	store, err := bitcask.Open(afero.NewOsFs(), cfg.DataDir, cfg.storeOptions(logger)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "(error) OPEN: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Welcome to bitcask cli, type \"exit\" to quit")
	fmt.Println("Commands: put <key> <value>, get <key>, remove <key>, list keys, size, merge")
	runErr := shell.New(store, os.Stdin, os.Stdout).Run()
	closeErr := store.Close()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "(error) INPUT: %s\n", runErr)
	}
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "(error) CLOSE: %s\n", closeErr)
	}
	if runErr != nil || closeErr != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	devenv "macroscrape/dev/env"
	"macroscrape/internal/config"
	"macroscrape/internal/store"
	"os"
)

const archiveFile = "<dev_state>/runs.db"

// localConfig points output and the run archive at the dev state directory.
const localConfig = `{
	// created by "go run ./dev", not checked in
	output_dir: "<dev_state>/data",
	store: {file: "<dev_state>/runs.db"},
	credentials: {
		// fred_api_key: "",
	},
}
`

func CreateRunArchive() error {
	path, err := devenv.ResolvePath(archiveFile)
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("run archive already created at", path)
		return nil
	}

	fmt.Println("creating run archive at", path)
	s, err := store.Open(config.StoreConfig{File: archiveFile})
	if err != nil {
		return err
	}
	return s.Close()
}

func CreateLocalConfig() error {
	_, err := os.Stat("macroscrape.local.json5")
	if err == nil {
		fmt.Println("macroscrape.local.json5 already exists, leaving it alone")
		return nil
	}
	fmt.Println("writing macroscrape.local.json5")
	return os.WriteFile("macroscrape.local.json5", []byte(localConfig), 0600)
}

func PrintConfigLocations() {
	cfg, err := config.Load("macroscrape.json5")
	if err != nil {
		fmt.Println("config does not load:", err)
		return
	}
	dir, err := devenv.ResolvePath(cfg.OutputDir)
	if err != nil {
		return
	}
	fmt.Println("output files will be written to", dir)
}

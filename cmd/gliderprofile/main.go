package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/gliderprofile/internal/app"
	"github.com/chrissnell/gliderprofile/internal/log"
	"github.com/chrissnell/gliderprofile/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "", "Path to YAML configuration file (defaults are used when empty)")
	envFile := flag.String("env", "", "Path to a .env file with GLIDERPROFILE_* overrides (./.env is read when present)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] file.dat...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("gliderprofile %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfgData, err := loadConfig(*cfgFile, *envFile)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	application, err := app.New(cfgData, log.GetSugaredLogger())
	if err != nil {
		log.Errorf("Failed to start: %v", err)
		os.Exit(1)
	}

	report, err := application.Run(context.Background(), files)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("Run failed: %v", err)
		os.Exit(1)
	}
	if report.Failed > 0 {
		log.Warnw("files failed", "run", report.RunID, "failed", report.Failed, "of", len(report.Files))
		os.Exit(3)
	}
}

func loadConfig(cfgFile, envFile string) (*config.ConfigData, error) {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	cfgData := config.DefaultConfig()
	if cfgFile != "" {
		filename, _ := filepath.Abs(cfgFile)

		var provider config.ConfigProvider = config.NewYAMLProvider(filename)
		defer provider.Close()

		var err error
		cfgData, err = provider.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
		}
	}

	if err := config.ApplyEnv(cfgData); err != nil {
		return nil, err
	}
	return cfgData, nil
}

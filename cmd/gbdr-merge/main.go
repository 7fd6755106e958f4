package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrissnell/gliderprofile/internal/export"
	"github.com/chrissnell/gliderprofile/internal/gbdr"
	"github.com/chrissnell/gliderprofile/internal/log"
	"github.com/chrissnell/gliderprofile/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "", "Optional YAML configuration; its merge section supplies defaults")
	flightFile := flag.String("flight", "", "Flight computer file (dbd2asc output, or binary with -dbd2asc)")
	scienceFile := flag.String("science", "", "Science computer file (dbd2asc output, or binary with -dbd2asc)")
	tolerance := flag.Float64("tolerance", -1, "Seconds within which flight and science records merge (default from config, 1)")
	format := flag.String("format", "json", "Output format: json (one record per line) or msgpack")
	dbd2asc := flag.String("dbd2asc", "", "Path to dbd2asc; when set, inputs are converted from binary first")
	cacheDir := flag.String("cache", "", "dbd2asc sensor list cache directory")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *flightFile == "" || *scienceFile == "" {
		log.Errorf("both -flight and -science are required")
		os.Exit(2)
	}

	merge := config.DefaultConfig().Merge
	if *cfgFile != "" {
		cfg, err := config.NewYAMLProvider(*cfgFile).LoadConfig()
		if err != nil {
			log.Errorf("Failed to load configuration: %v", err)
			os.Exit(1)
		}
		merge = cfg.Merge
	}
	if *tolerance >= 0 {
		merge.Tolerance = *tolerance
	}
	if *dbd2asc != "" {
		merge.Dbd2asc = *dbd2asc
	}
	if *cacheDir != "" {
		merge.CacheDir = *cacheDir
	}

	outFormat, err := export.ParseFormat(*format)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(2)
	}

	log.Debugw("merging",
		"flight", *flightFile,
		"science", *scienceFile,
		"tolerance", merge.Tolerance,
		"format", outFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := bufio.NewWriter(os.Stdout)
	n, merged, err := run(ctx, merge, *flightFile, *scienceFile, export.NewFormatter(outFormat), out)
	if flushErr := out.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		log.Errorf("Merge failed after %d records: %v", n, err)
		os.Exit(1)
	}
	log.Infow("merge finished", "records", n, "merged", merged)
}

func run(ctx context.Context, merge config.MergeData, flightPath, sciencePath string, f *export.Formatter, w io.Writer) (int, int, error) {
	var m *gbdr.MergedReader
	if merge.Dbd2asc != "" {
		var err error
		m, err = gbdr.NewConverter(merge.Dbd2asc, merge.CacheDir, log.GetSugaredLogger()).
			MergePair(ctx, flightPath, sciencePath, merge.Tolerance)
		if err != nil {
			return 0, 0, err
		}
	} else {
		flight, closeFlight, err := openASCII(flightPath)
		if err != nil {
			return 0, 0, err
		}
		defer closeFlight()
		science, closeScience, err := openASCII(sciencePath)
		if err != nil {
			return 0, 0, err
		}
		defer closeScience()
		m = gbdr.NewMergedReader(flight, science, merge.Tolerance)
	}

	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, m.Merged(), err
		}
		r, err := m.Next()
		if errors.Is(err, io.EOF) {
			return n, m.Merged(), nil
		}
		if err != nil {
			return n, m.Merged(), err
		}
		if err := f.Encode(w, r); err != nil {
			return n, m.Merged(), fmt.Errorf("encoding record: %w", err)
		}
		n++
	}
}

func openASCII(path string) (*gbdr.Reader, func() error, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	rd, err := gbdr.NewReader(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return rd, file.Close, nil
}

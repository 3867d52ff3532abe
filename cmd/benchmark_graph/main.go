package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	repeatsKey = "repeats"
	filterKey  = "filter"
	verboseKey = "verbose"
)

var perfTestCfgs = []benchmarkTestConfig{
	{
		name:           "simple component",
		width:          10,
		staticFraction: 1,
		nSources:       2,
		totalLayers:    5,
		readFraction:   0.2,
		iterations:     600000,
	},
	{
		name:           "dynamic component",
		width:          10,
		totalLayers:    10,
		staticFraction: 0.75,
		nSources:       6,
		readFraction:   0.2,
		iterations:     15000,
	},
	{
		name:           "large web app",
		width:          1000,
		totalLayers:    12,
		staticFraction: 0.95,
		nSources:       4,
		readFraction:   1,
		iterations:     7000,
	},
	{
		name:           "wide dense",
		width:          1000,
		totalLayers:    5,
		staticFraction: 1,
		nSources:       25,
		readFraction:   1,
		iterations:     3000,
	},
	{
		name:           "deep",
		width:          5,
		totalLayers:    500,
		staticFraction: 1,
		nSources:       3,
		readFraction:   1,
		iterations:     500,
	},
	{
		name:           "very dynamic",
		width:          100,
		totalLayers:    15,
		staticFraction: 0.5,
		nSources:       6,
		readFraction:   1,
		iterations:     2000,
	},
}

func main() {
	cmd := &cli.Command{
		Name:  "benchmark_graph",
		Usage: "Run the layered graph benchmark against solid signals",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  repeatsKey,
				Usage: "Timed runs per config, the best one is reported",
				Value: 5,
			},
			&cli.StringFlag{
				Name:  filterKey,
				Usage: "Only run configs whose name contains this",
			},
			&cli.BoolFlag{
				Name:  verboseKey,
				Usage: "Log every run",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("benchmark failed", "err", err)
		os.Exit(1)
	}
}

type results struct {
	sum      int
	count    int64
	duration time.Duration
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool(verboseKey) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	logger.Info("starting graph benchmark, please wait...")
	defer logger.Info("finished graph benchmark")

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"framework", "size", "nSources", "read%", "static%",
		"nTimes", "test", "time", "updateRate", "title",
	})

	testRepeats := int(cmd.Uint(repeatsKey))
	filter := cmd.String(filterKey)
	for _, cfg := range perfTestCfgs {
		if filter != "" && !strings.Contains(cfg.name, filter) {
			continue
		}
		best, err := runConfig(logger, cfg, testRepeats)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.name, err)
		}

		updateRate := float64(best.count) / (float64(best.duration) / float64(time.Millisecond))
		table.Append([]string{
			"solid",
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			fmt.Sprint(cfg.nSources),
			fmt.Sprint(cfg.readFraction),
			fmt.Sprint(cfg.staticFraction),
			humanize.Comma(cfg.iterations),
			cfg.name,
			fmt.Sprint(best.duration),
			humanize.Comma(int64(updateRate)),
			cfg.title(),
		})
	}
	table.Render()
	return nil
}

func runConfig(logger *slog.Logger, cfg benchmarkTestConfig, repeats int) (*results, error) {
	logger.Info("running config", "name", cfg.name)
	counter := new(int64)
	graph, err := benchmarkMakeGraph(&benchmarkMakeGraphConfig{
		logger:         logger,
		counter:        counter,
		width:          cfg.width,
		totalLayers:    cfg.totalLayers,
		nSources:       cfg.nSources,
		staticFraction: cfg.staticFraction,
	})
	if err != nil {
		return nil, err
	}
	defer graph.rt.Dispose()

	runOnce := func() (int, error) {
		return benchmarkRunGraph(&benchmarkRunGraphConfig{
			graph:        graph,
			iteration:    cfg.iterations,
			readFraction: cfg.readFraction,
		})
	}
	// warm up
	if _, err := runOnce(); err != nil {
		return nil, err
	}

	best := &results{duration: time.Hour}
	for i := 0; i < repeats; i++ {
		*counter = 0
		start := time.Now()
		sum, err := runOnce()
		if err != nil {
			return nil, err
		}
		duration := time.Since(start)
		logger.Debug("run", "name", cfg.name, "repeat", i+1, "of", repeats, "sum", sum, "count", *counter, "duration", duration)

		if duration < best.duration {
			best.duration = duration
			best.sum = sum
			best.count = *counter
		}
	}

	return best, nil
}

type benchmarkTestConfig struct {
	name           string  // friendly name for the test, should be unique
	width          int64   // width of dependency graph to construct
	totalLayers    int64   // depth of dependency graph to construct
	staticFraction float64 // fraction of nodes that are static
	nSources       int64   // construct a graph with number of sources in each node
	readFraction   float64 // fraction of [0, 1] elements in the last layer from which to read values in each test iteration
	iterations     int64   // number of test iterations
}

func (cfg benchmarkTestConfig) title() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources))
	if cfg.staticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	if cfg.readFraction < 1 {
		sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*cfg.readFraction))
	}
	return sb.String()
}

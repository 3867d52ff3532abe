package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/solidsignals/solid"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	iterationsKey = "iterations"
	maxSizeKey    = "max-size"
	cpuProfileKey = "cpuprofile"
	markdownKey   = "markdown"
	verboseKey    = "verbose"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Time propagation through chains and batches of solid signals",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  iterationsKey,
				Usage: "Writes timed per benchmark",
				Value: 100,
			},
			&cli.UintFlag{
				Name:  maxSizeKey,
				Usage: "Largest graph width and height, sizes grow by powers of ten",
				Value: 1_000,
			},
			&cli.StringFlag{
				Name:  cpuProfileKey,
				Usage: "Write a CPU profile to this file",
			},
			&cli.StringFlag{
				Name:  markdownKey,
				Usage: "Also write the results as a markdown report to this file",
			},
			&cli.BoolFlag{
				Name:  verboseKey,
				Usage: "Log flush traces",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("benchmark failed", "err", err)
		os.Exit(1)
	}
}

type result struct {
	Suite                   string
	Name                    string
	Avg, Min, P75, P99, Max time.Duration
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool(verboseKey) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if path := cmd.String(cpuProfileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	b := &bench{
		logger: logger,
		iters:  int(cmd.Uint(iterationsKey)),
	}
	for size := 1; size <= int(cmd.Uint(maxSizeKey)); size *= 10 {
		b.sizes = append(b.sizes, size)
	}

	started := time.Now()
	logger.Info("warming up", "iterations", b.iters, "sizes", b.sizes)

	var results []result
	for _, suite := range []struct {
		title string
		run   func() ([]result, error)
	}{
		{"Propagate", b.propagate},
		{"Batch", b.batch},
	} {
		rows, err := suite.run()
		if err != nil {
			return fmt.Errorf("%s: %w", suite.title, err)
		}
		render(suite.title, rows)
		results = append(results, rows...)
	}

	if path := cmd.String(markdownKey); path != "" {
		if err := saveReport(path, "solid signals", started, results); err != nil {
			return err
		}
		logger.Info("wrote report", "path", path)
	}
	return nil
}

type bench struct {
	logger *slog.Logger
	iters  int
	sizes  []int
}

func (b *bench) runtime() *solid.Runtime {
	return solid.NewRuntime(solid.WithLogger(b.logger))
}

func (b *bench) measure(suite, name string, write func(i int) error) (result, error) {
	tach := tachymeter.New(&tachymeter.Config{Size: b.iters})
	for i := 0; i < b.iters; i++ {
		start := time.Now()
		if err := write(i); err != nil {
			return result{}, err
		}
		tach.AddTime(time.Since(start))
	}

	calc := tach.Calc()
	return result{
		Suite: suite,
		Name:  name,
		Avg:   calc.Time.Avg,
		Min:   calc.Time.Min,
		P75:   calc.Time.P75,
		P99:   calc.Time.P99,
		Max:   calc.Time.Max,
	}, nil
}

// propagate writes one signal feeding w chains of h memos, each chain ending in an effect.
func (b *bench) propagate() ([]result, error) {
	var rows []result
	for _, w := range b.sizes {
		for _, h := range b.sizes {
			rt := b.runtime()
			src := solid.NewSignal(rt, 1)

			_, err := solid.CreateRoot(rt, func(func()) (struct{}, error) {
				for i := 0; i < w; i++ {
					last := src.Read
					for j := 0; j < h; j++ {
						prev := last
						m, err := solid.CreateMemo(rt, func(int) (int, error) {
							return prev() + 1, nil
						}, 0)
						if err != nil {
							return struct{}{}, err
						}
						last = m.Read
					}
					if _, err := solid.CreateEffect(rt, func() error {
						last()
						return nil
					}); err != nil {
						return struct{}{}, err
					}
				}
				return struct{}{}, nil
			})
			if err != nil {
				return nil, err
			}

			row, err := b.measure("propagate", fmt.Sprintf("propagate: %d * %d", w, h), func(int) error {
				return src.Update(addOne)
			})
			rt.Dispose()
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// batch writes w signals in one batch, summed by h memos and watched by one effect.
func (b *bench) batch() ([]result, error) {
	var rows []result
	for _, w := range b.sizes {
		for _, h := range b.sizes {
			rt := b.runtime()
			sources := make([]*solid.Signal[int], w)
			for i := range sources {
				sources[i] = solid.NewSignal(rt, i)
			}

			effectRuns := 0
			_, err := solid.CreateRoot(rt, func(func()) (struct{}, error) {
				sums := make([]*solid.Memo[int], h)
				for i := range sums {
					m, err := solid.CreateMemo(rt, func(int) (int, error) {
						sum := 0
						for _, s := range sources {
							sum += s.Read()
						}
						return sum, nil
					}, 0)
					if err != nil {
						return struct{}{}, err
					}
					sums[i] = m
				}
				_, err := solid.CreateEffect(rt, func() error {
					for _, m := range sums {
						m.Read()
					}
					effectRuns++
					return nil
				})
				return struct{}{}, err
			})
			if err != nil {
				return nil, err
			}

			row, err := b.measure("batch", fmt.Sprintf("batch: %d * %d", w, h), func(int) error {
				return rt.Batch(func() error {
					for _, s := range sources {
						if err := s.Update(addOne); err != nil {
							return err
						}
					}
					return nil
				})
			})
			rt.Dispose()
			if err != nil {
				return nil, err
			}
			if effectRuns != b.iters+1 {
				return nil, fmt.Errorf("batch %d * %d: effect ran %d times, want %d", w, h, effectRuns, b.iters+1)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func addOne(oldValue int) int {
	return oldValue + 1
}

func render(title string, rows []result) {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	for _, r := range rows {
		tbl.AppendRow(table.Row{r.Name, r.Avg, r.Min, r.P75, r.P99, r.Max})
	}
	tbl.Render()
}

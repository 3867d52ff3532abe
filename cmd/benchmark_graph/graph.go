package main

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/delaneyj/solidsignals/solid"
)

type benchmarkGraph struct {
	rt      *solid.Runtime
	sources []*solid.Signal[int]
	layers  [][]*solid.Memo[int]
}

type benchmarkMakeGraphConfig struct {
	logger                       *slog.Logger
	counter                      *int64
	width, totalLayers, nSources int64
	staticFraction               float64
}

// benchmarkMakeGraph builds width sources feeding totalLayers-1 rows of memos,
// all owned by one root that lives as long as the graph's runtime.
func benchmarkMakeGraph(cfg *benchmarkMakeGraphConfig) (*benchmarkGraph, error) {
	rt := solid.NewRuntime(solid.WithLogger(cfg.logger))
	sources := make([]*solid.Signal[int], cfg.width)
	for i := range sources {
		sources[i] = solid.NewSignal(rt, i)
	}

	return solid.CreateRoot(rt, func(func()) (*benchmarkGraph, error) {
		layers, err := makeBenchmarkDependentRows(&benchmarkMakeDependentRowsConfig{
			rt:             rt,
			sources:        sources,
			numRows:        cfg.totalLayers - 1,
			counter:        cfg.counter,
			staticFraction: cfg.staticFraction,
			nSources:       cfg.nSources,
		})
		if err != nil {
			return nil, err
		}
		return &benchmarkGraph{rt: rt, sources: sources, layers: layers}, nil
	})
}

type benchmarkRunGraphConfig struct {
	graph        *benchmarkGraph
	iteration    int64
	readFraction float64
}

// benchmarkRunGraph writes one of the sources per iteration and reads some or all
// of the leaves. It returns the sum of the leaves read.
func benchmarkRunGraph(cfg *benchmarkRunGraphConfig) (int, error) {
	g := cfg.graph
	random := rand.New(rand.NewSource(0))
	leaves := g.layers[len(g.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - cfg.readFraction)))
	readLeaves := benchmarkRemoveElems(leaves, skipCount, random)

	for i := 0; i < int(cfg.iteration); i++ {
		err := g.rt.Batch(func() error {
			sourceDex := i % len(g.sources)
			return g.sources[sourceDex].Write(i + sourceDex)
		})
		if err != nil {
			return 0, err
		}

		for _, leaf := range readLeaves {
			leaf.Read()
		}
	}

	sum := 0
	for _, leaf := range readLeaves {
		sum += leaf.Read()
	}
	return sum, nil
}

func benchmarkRemoveElems[T comparable](src []T, rmCount int, rand *rand.Rand) []T {
	copyWithRemovals := make([]T, len(src))
	copy(copyWithRemovals, src)
	for i := 0; i < rmCount; i++ {
		rmDex := rand.Intn(len(copyWithRemovals))
		copyWithRemovals[rmDex] = copyWithRemovals[len(copyWithRemovals)-1]
		copyWithRemovals = copyWithRemovals[:len(copyWithRemovals)-1]
	}
	return copyWithRemovals
}

type benchmarkMakeDependentRowsConfig struct {
	rt                *solid.Runtime
	sources           []*solid.Signal[int]
	numRows, nSources int64
	counter           *int64
	staticFraction    float64
}

func makeBenchmarkDependentRows(cfg *benchmarkMakeDependentRowsConfig) ([][]*solid.Memo[int], error) {
	prevRow := make([]solid.Accessor[int], len(cfg.sources))
	for i, s := range cfg.sources {
		prevRow[i] = s.Read
	}

	random := rand.New(rand.NewSource(0))
	rows := make([][]*solid.Memo[int], cfg.numRows)
	for l := int64(0); l < cfg.numRows; l++ {
		row, err := makeBenchmarkRow(&benchmarkRowConfig{
			rt:             cfg.rt,
			sources:        prevRow,
			counter:        cfg.counter,
			staticFraction: cfg.staticFraction,
			nSources:       cfg.nSources,
			rand:           random,
		})
		if err != nil {
			return nil, err
		}
		rows[l] = row

		prevRow = make([]solid.Accessor[int], len(row))
		for i, m := range row {
			prevRow[i] = m.Read
		}
	}
	return rows, nil
}

type benchmarkRowConfig struct {
	rt             *solid.Runtime
	sources        []solid.Accessor[int]
	counter        *int64
	staticFraction float64
	nSources       int64
	rand           *rand.Rand
}

func makeBenchmarkRow(cfg *benchmarkRowConfig) ([]*solid.Memo[int], error) {
	row := make([]*solid.Memo[int], len(cfg.sources))

	for myDex := range cfg.sources {
		mySources := make([]solid.Accessor[int], 0, cfg.nSources)
		for sourceDex := 0; sourceDex < int(cfg.nSources); sourceDex++ {
			mySources = append(mySources, cfg.sources[(myDex+sourceDex)%len(cfg.sources)])
		}

		var fn func(int) (int, error)
		if cfg.rand.Float64() < cfg.staticFraction {
			// static node, always reads every source
			fn = func(int) (int, error) {
				*cfg.counter++
				sum := 0
				for _, source := range mySources {
					sum += source()
				}
				return sum, nil
			}
		} else {
			first := mySources[0]
			tail := mySources[1:]
			fn = func(int) (int, error) {
				*cfg.counter++
				sum := first()
				shouldDrop := sum&0x1 > 0
				dropDex := sum % len(tail)

				for i := 0; i < len(tail); i++ {
					if shouldDrop && i == dropDex {
						continue
					}
					sum += tail[i]()
				}
				return sum, nil
			}
		}

		m, err := solid.CreateMemo(cfg.rt, fn, 0)
		if err != nil {
			return nil, err
		}
		row[myDex] = m
	}
	return row, nil
}

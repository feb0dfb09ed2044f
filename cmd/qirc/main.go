// Package main implements the qirc compiler binary.
//
// Philosophy: Load a typed program tree, evaluate it into a circuit program,
// clean it up and print it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/markkurossi/tabulate"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/qirc/pkg/config"
	"github.com/GriffinCanCode/qirc/pkg/fir"
	"github.com/GriffinCanCode/qirc/pkg/ir"
	"github.com/GriffinCanCode/qirc/pkg/logger"
	"github.com/GriffinCanCode/qirc/pkg/partialeval"
	"github.com/GriffinCanCode/qirc/pkg/passes"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "compile":
		if err := compile(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("qirc version %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`qirc - Compile typed quantum programs to block-structured circuit IR

Usage:
    qirc compile [options] <tree.yaml>...  Evaluate and print each program
    qirc version                           Show compiler version
    qirc help                              Show this help message

Options:
    -config <file>  Settings file (YAML)
    -no-reindex     Skip qubit reindexing
    -stats          Print a summary table per program
    -metrics        Print compiler counters after all programs
    -v              Verbose output`)
}

// unit is one compiled input file.
type unit struct {
	path string
	prog *ir.Program
}

func compile(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file")
	noReindex := fs.Bool("no-reindex", false, "skip qubit reindexing")
	stats := fs.Bool("stats", false, "print a summary table per program")
	metrics := fs.Bool("metrics", false, "print compiler counters")
	verbose := fs.Bool("v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()
	if len(files) == 0 {
		return errors.New("no input file")
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	logCfg := cfg.Logger()
	if *verbose {
		logCfg = logger.DevConfig()
	}
	l, err := logger.New(logCfg)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer logger.Replace(l)()
	defer logger.Sync()

	opts := cfg.EvalOptions()
	pipeline := cfg.Pipeline()
	if *noReindex {
		pipeline.ReindexQubits = false
	}
	logger.LogCompilerStart(version, "files", len(files), "capabilities", opts.Capabilities)

	units, err := compileAll(context.Background(), files, opts, pipeline)
	if err != nil {
		return err
	}

	for _, u := range units {
		if len(units) > 1 {
			fmt.Fprintf(out, "; %s\n", u.path)
		}
		fmt.Fprintln(out, u.prog)
	}
	if *stats {
		printStats(out, units)
	}
	if *metrics {
		if err := printMetrics(out); err != nil {
			return err
		}
	}
	return nil
}

// compileAll compiles each file independently. The first failure cancels
// files not yet started.
func compileAll(ctx context.Context, files []string, opts partialeval.Options, pipeline passes.Pipeline) ([]unit, error) {
	units := make([]unit, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prog, err := compileFile(path, opts, pipeline)
			if err != nil {
				return err
			}
			units[i] = unit{path: path, prog: prog}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}

func compileFile(path string, opts partialeval.Options, pipeline passes.Pipeline) (*ir.Program, error) {
	start := time.Now()
	log := logger.Named("compile").With("source", path)
	store, err := fir.LoadStore(path)
	if err != nil {
		return nil, err
	}
	log.Debugw("Loaded program tree")
	prog, err := partialeval.Evaluate(store, opts)
	if err != nil {
		logger.LogError("Evaluation failed", err, "source", path)
		return nil, errors.Wrapf(err, "compile %s", path)
	}
	log.Debugw("Evaluated program", "blocks", prog.Blocks.Len(), "callables", prog.Callables.Len())
	prog = passes.Run(prog, pipeline)
	logger.LogCompilerComplete(path, start, "qubits", prog.NumQubits, "results", prog.NumResults)
	return prog, nil
}

func printStats(out io.Writer, units []unit) {
	tab := tabulate.New(tabulate.Unicode)
	tab.Header("Program").SetAlign(tabulate.ML)
	for _, h := range []string{"Blocks", "Instructions", "Callables", "Qubits", "Results"} {
		tab.Header(h).SetAlign(tabulate.MR)
	}
	for _, u := range units {
		instrs := 0
		for _, b := range u.prog.Blocks.All() {
			instrs += b.Len()
		}
		row := tab.Row()
		row.Column(u.path)
		row.Column(fmt.Sprint(u.prog.Blocks.Len()))
		row.Column(fmt.Sprint(instrs))
		row.Column(fmt.Sprint(u.prog.Callables.Len()))
		row.Column(fmt.Sprint(u.prog.NumQubits))
		row.Column(fmt.Sprint(u.prog.NumResults))
	}
	tab.Print(out)
}

// printMetrics renders the qirc counters registered with the default
// registry.
func printMetrics(out io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })

	tab := tabulate.New(tabulate.Unicode)
	tab.Header("Metric").SetAlign(tabulate.ML)
	tab.Header("Value").SetAlign(tabulate.MR)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "qirc_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			var value string
			switch {
			case m.GetCounter() != nil:
				value = fmt.Sprint(m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("%d samples, %.6fs", h.GetSampleCount(), h.GetSampleSum())
			default:
				continue
			}
			row := tab.Row()
			row.Column(name)
			row.Column(value)
		}
	}
	tab.Print(out)
	return nil
}

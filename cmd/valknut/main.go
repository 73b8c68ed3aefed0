// Command valknut runs the analysis pipeline over one or more paths and
// prints the resulting AnalysisResults record as JSON. It exists to
// exercise the library; report rendering and rich flag surfaces live in
// external consumers.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sibyllinesoft/valknut-go/internal/pipeline"
	"github.com/sibyllinesoft/valknut-go/internal/vkconfig"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	quiet := flag.Bool("quiet", false, "suppress stage progress on stderr")
	flag.Parse()

	roots := flag.Args()
	if len(roots) == 0 {
		roots = []string{"."}
	}

	cfg := vkconfig.Default()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg, err = vkconfig.Load(data)
		if err != nil {
			fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.New(cfg)
	if !*quiet {
		runner.WithProgress(func(stage string, pct float64) {
			fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", pct, stage)
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	exitCode := 0
	for _, root := range roots {
		res, err := runner.Run(ctx, root, pipeline.ExternalInputs{})
		if err != nil {
			fatal(err)
		}
		if err := encoder.Encode(res); err != nil {
			fatal(err)
		}
		if res.QualityGate != nil && !res.QualityGate.Passed {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "valknut:", err)
	os.Exit(2)
}

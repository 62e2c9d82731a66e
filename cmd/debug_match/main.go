// Command debug_match runs the template matcher against a saved screenshot and
// reports every hit at a few tolerances. Use it to tune match.tolerance and
// match.max_fail_rate without touching the screen.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ConserveLee/img-trace-macro/internal/config"
	"github.com/ConserveLee/img-trace-macro/internal/engine/screen"
)

func main() {
	configPath := flag.String("config", "", "path to YAML or TOML config file")
	screenPath := flag.String("screen", "debug_screen.png", "screenshot to search in")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	loader := screen.NewSearcher(screen.OptionsFromConfig(cfg))
	screenImg, err := loader.LoadImage(*screenPath)
	if err != nil {
		fmt.Printf("Failed to load screen: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Screen size: %dx%d\n", screenImg.Bounds().Dx(), screenImg.Bounds().Dy())
	fmt.Printf("Using MaxFailRate: %.0f%%\n", cfg.Match.MaxFailRate*100)

	templates := flag.Args()
	if len(templates) == 0 {
		templates = []string{cfg.Templates.Primary, cfg.Templates.Secondary}
	}

	for _, tplPath := range templates {
		tplImg, err := loader.LoadImage(tplPath)
		if err != nil {
			fmt.Printf("Failed to load template %s: %v\n", tplPath, err)
			continue
		}

		fmt.Printf("\n=== Testing %s (%dx%d) ===\n", tplPath, tplImg.Bounds().Dx(), tplImg.Bounds().Dy())

		for _, tolerance := range []float64{cfg.Match.Tolerance, 80} {
			opts := screen.OptionsFromConfig(cfg)
			opts.Tolerance = tolerance
			matches := screen.NewSearcher(opts).FindAllTemplates(screenImg, tplImg)
			fmt.Printf("  Tolerance %.0f (%.0f%% fail allowed): %d matches", tolerance, opts.MaxFailRate*100, len(matches))
			if len(matches) > 0 {
				fmt.Printf(" -> %v", matches)
			}
			fmt.Println()
		}
	}
}

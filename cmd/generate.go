package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/pyramid"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the missing tiles of the pyramid",
	Long: `Generate writes every level-0 tile that is not on disk yet, then every missing
level-1 tile. Existing tiles are left untouched, so an interrupted run can be
resumed by starting it again.

Examples:
  worldmap generate --zones ./zones --out ./tiles
  worldmap generate --levels 0 --order row
  worldmap generate --zone-cache-mb 2048`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().String("levels", "0,1", "comma separated levels to generate")
	generateCmd.Flags().String("order", string(pyramid.OrderColumn), "tile visiting order (column|row|hilbert)")
	generateCmd.Flags().Int("zone-cache-mb", 0, "keep up to this many MiB of decoded zones in memory (0 disables)")
	generateCmd.Flags().Bool("no-progress", false, "disable the progress bar")

	viper.BindPFlag("generate.levels", generateCmd.Flags().Lookup("levels"))
	viper.BindPFlag("generate.order", generateCmd.Flags().Lookup("order"))
	viper.BindPFlag("zones.cache_mb", generateCmd.Flags().Lookup("zone-cache-mb"))
	viper.BindPFlag("generate.no_progress", generateCmd.Flags().Lookup("no-progress"))
}

func runGenerate(cmd *cobra.Command, args []string) error {
	levels, err := parseLevels(viper.GetString("generate.levels"))
	if err != nil {
		return err
	}
	order, err := pyramid.ParseOrder(viper.GetString("generate.order"))
	if err != nil {
		return err
	}

	opts := pyramid.Options{Order: order}
	if !viper.GetBool("generate.no_progress") {
		opts.Progress = newProgressBar
	}

	p, err := newPipeline(viper.GetInt("zones.cache_mb"), opts)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"zones": viper.GetString("zones.dir"),
		"tiles": p.store.Dir(),
		"map":   fmt.Sprintf("%dx%d", p.geom.MapWidth(), p.geom.MapHeight()),
	}).Info("generating tiles")

	for _, level := range levels {
		var counts pyramid.Counts
		switch level {
		case tile.Level0:
			counts, err = p.builder.BuildLevel0(ctx)
		case tile.Level1:
			counts, err = p.builder.BuildLevel1(ctx)
		}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("interrupted: %w", context.Cause(ctx))
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "level %d: %d tiles, %d generated, %d already present\n",
			level, counts.Total, counts.Generated, counts.Skipped)
	}
	return nil
}

// parseLevels reads a list like "0,1". Levels always run in ascending order
// since level 1 is built from level 0.
func parseLevels(s string) ([]int, error) {
	var want [tile.Level1 + 1]bool
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < tile.Level0 || n > tile.Level1 {
			return nil, fmt.Errorf("invalid level %q: must be %d or %d", part, tile.Level0, tile.Level1)
		}
		want[n] = true
	}

	var levels []int
	for l, ok := range want {
		if ok {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("no levels selected")
	}
	return levels, nil
}

func newProgressBar(description string, total int) pyramid.Progress {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("tiles"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
}

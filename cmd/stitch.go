package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/pyramid"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

var stitchCmd = &cobra.Command{
	Use:   "stitch",
	Short: "Stitch an arbitrary rectangle of the map into one image",
	Long: `Stitch assembles the pixels of a map rectangle from the zone images and
writes them as PNG. Coordinates are global map pixels, the rectangle is
half-open: x0,y0 is included, x1,y1 is not.

Examples:
  worldmap stitch --rect 0,0,1280,600 -o first-zone.png
  worldmap stitch --rect 1000,500,3000,1500 > region.png`,
	RunE: runStitch,
}

func init() {
	rootCmd.AddCommand(stitchCmd)

	stitchCmd.Flags().String("rect", "", "rectangle as 'x0,y0,x1,y1' (required)")
	stitchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	stitchCmd.MarkFlagRequired("rect")

	viper.BindPFlag("stitch.rect", stitchCmd.Flags().Lookup("rect"))
	viper.BindPFlag("stitch.output", stitchCmd.Flags().Lookup("output"))
}

func runStitch(cmd *cobra.Command, args []string) error {
	rect, err := parseRect(viper.GetString("stitch.rect"))
	if err != nil {
		return err
	}

	output := viper.GetString("stitch.output")
	if output == "" && isTerminal(cmd.OutOrStdout()) {
		return fmt.Errorf("didn't specify output file and standard output is a terminal")
	}

	p, err := newPipeline(0, pyramid.Options{})
	if err != nil {
		return err
	}
	defer p.close()

	img, err := p.stitcher.Assemble(cmd.Context(), rect)
	if err != nil {
		return err
	}

	if output == "" {
		return tile.EncodePNG(cmd.OutOrStdout(), img)
	}
	if err := tile.WritePNG(output, img); err != nil {
		return err
	}
	log.WithFields(log.Fields{"rect": rect.String(), "file": output}).Info("wrote stitched image")
	return nil
}

// isTerminal reports whether w is a character device such as a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

// parseRect reads "x0,y0,x1,y1"
func parseRect(s string) (tile.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return tile.Rect{}, fmt.Errorf("rect must be in format 'x0,y0,x1,y1'")
	}

	names := []string{"x0", "y0", "x1", "y1"}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return tile.Rect{}, fmt.Errorf("invalid %s in rect: %v", names[i], err)
		}
		v[i] = n
	}
	return tile.R(v[0], v[1], v[2], v[3]), nil
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kernelmethod/worldmap/internal/zone"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

var locateCmd = &cobra.Command{
	Use:   "locate X Y | locate ZONE",
	Short: "Show which zone holds a pixel, or where a zone lies on the map",
	Long: `With two arguments, locate prints the zone containing global pixel X,Y and
the pixel's position inside that zone. With a zone id, it prints the zone's
rectangle in global pixels.

Examples:
  worldmap locate 153600 22500
  worldmap locate JoppaWorld.11.22.1.1.10`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	geom, err := loadGeometry()
	if err != nil {
		return err
	}
	locator := zone.NewLocator(geom)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		id, err := zone.ParseID(args[0])
		if err != nil {
			return err
		}
		inner := tile.R(0, 0, tile.ZonesPerWorld, tile.ZonesPerWorld)
		if !tile.Pt(id.InnerX, id.InnerY).In(inner) || !geom.Contains(locator.Bounds(id)) {
			return fmt.Errorf("zone %s is not part of the %dx%d world", id, geom.WorldWidth(), geom.WorldHeight())
		}
		fmt.Fprintf(out, "%s\t%v\n", id, locator.Bounds(id))
		return nil
	}

	x, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid x: %v", err)
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid y: %v", err)
	}

	p := tile.Pt(x, y)
	if !p.In(geom.Bounds()) {
		return fmt.Errorf("pixel %v outside the %dx%d map", p, geom.MapWidth(), geom.MapHeight())
	}
	local := locator.Local(p)
	fmt.Fprintf(out, "%s\t%d\t%d\n", locator.Locate(p), local.X, local.Y)
	return nil
}

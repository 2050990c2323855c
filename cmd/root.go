package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

// Version is reported by the server health endpoint
var Version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "worldmap",
	Short: "Build a zoomable tile pyramid from exported zone screenshots",
	Long: `worldmap turns a directory of zone screenshots into the tile pyramid used by
the web map viewer.

Zone images are named {prefix}.{wx}.{wy}.{ix}.{iy}.{suffix}.{webp|png} and cover
one zone each. Level-0 tiles are cut from the stitched map at full resolution,
level-1 tiles combine 4x4 level-0 tiles at a quarter of the size.

Examples:
  # Generate every missing tile
  worldmap generate --zones ./zones --out ./tiles

  # Regenerate level 1 only, walking tiles along a Hilbert curve
  worldmap generate --levels 1 --order hilbert

  # Cut an arbitrary rectangle of the map
  worldmap stitch --rect 1000,2000,5000,4000 -o region.png

  # Which zone holds a pixel
  worldmap locate 153600 22500

  # Serve tiles, rendering missing ones on demand
  worldmap serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		var cerr *tile.ConfigurationError
		if errors.As(err, &cerr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.worldmap.yaml)")
	rootCmd.PersistentFlags().String("zones", "zones", "directory holding the zone images")
	rootCmd.PersistentFlags().String("out", "tiles", "tile output directory")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file, rotated by size")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	viper.BindPFlag("zones.dir", rootCmd.PersistentFlags().Lookup("zones"))
	viper.BindPFlag("tiles.dir", rootCmd.PersistentFlags().Lookup("out"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))

	setDefaults()
}

func setDefaults() {
	g := tile.DefaultGeometryOptions()
	viper.SetDefault("geometry.zone_width", g.ZoneWidth)
	viper.SetDefault("geometry.zone_height", g.ZoneHeight)
	viper.SetDefault("geometry.world_width", g.WorldWidth)
	viper.SetDefault("geometry.world_height", g.WorldHeight)
	viper.SetDefault("geometry.tile_length", g.TileLength)
	viper.SetDefault("geometry.zone_prefix", g.ZonePrefix)
	viper.SetDefault("geometry.zone_suffix", g.ZoneSuffix)

	viper.SetDefault("zones.ext", []string{"webp", "png"})
	viper.SetDefault("zones.cache_mb", 0)
	viper.SetDefault("tiles.pattern", "tile_{z}_{x}_{y}.png")

	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 3)
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is normal
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error loading .env:", err)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in the working and home directories.
		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".worldmap")
	}

	viper.SetEnvPrefix("WORLDMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func initLogging() error {
	err := log.Init(log.Options{
		Level:      viper.GetString("log.level"),
		JSON:       viper.GetBool("log.json"),
		File:       viper.GetString("log.file"),
		MaxSizeMB:  viper.GetInt("log.max_size_mb"),
		MaxBackups: viper.GetInt("log.max_backups"),
	})
	if err != nil {
		return fmt.Errorf("log settings: %w", err)
	}
	return nil
}

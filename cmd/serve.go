package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kernelmethod/worldmap/internal/log"
	"github.com/kernelmethod/worldmap/internal/pyramid"
	"github.com/kernelmethod/worldmap/internal/server"
	"github.com/kernelmethod/worldmap/pkg/tile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for map tiles",
	Long: `Start an HTTP server that serves the tile pyramid to the web viewer.

Tiles that are not on disk yet are rendered on the first request and stored,
so the server can run against a partially generated pyramid.

Examples:
  # Start server on default port 8080
  worldmap serve

  # Start server on custom port
  worldmap serve --port 3000

  # Start server with custom bind address and a 1 GiB zone cache
  worldmap serve --bind 0.0.0.0 --port 8080 --zone-cache-mb 1024`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 60*time.Second, "request timeout")
	serveCmd.Flags().Int("zone-cache-mb", 512, "keep up to this many MiB of decoded zones in memory (0 disables)")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.zone_cache_mb", serveCmd.Flags().Lookup("zone-cache-mb"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	p, err := newPipeline(viper.GetInt("server.zone_cache_mb"), pyramid.Options{})
	if err != nil {
		return err
	}
	defer p.close()

	apiServer := server.NewServer(Version, p.geom, p.builder, p.stitcher, p.store)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Routes(timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout + 5*time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Infof("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Errorf("Server shutdown error: %v", err)
		}
	}()

	log.WithFields(log.Fields{
		"addr":  addr,
		"zones": viper.GetString("zones.dir"),
		"tiles": p.store.Dir(),
	}).Info("Starting worldmap server")
	fmt.Fprintf(cmd.ErrOrStderr(), "Tiles: http://%s/tiles/%s\n", addr, p.store.Name(tile.ID{}))
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Stitch endpoint: http://%s/api/v1/stitch?x0=0&y0=0&x1=%d&y1=%d\n",
		addr, p.geom.ZoneWidth(), p.geom.ZoneHeight())

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}

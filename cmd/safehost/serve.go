package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/safehost-dev/safehost/pkg/bridge"
	"github.com/safehost-dev/safehost/pkg/host"
)

// serveCmd runs the bridge server.
func serveCmd() *cobra.Command {
	var (
		addr          string
		trustedOrigin string
		hostOrigin    string
		pluginVersion string
		noFluid       bool
		logJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SafeFrame host bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if trustedOrigin == "" {
				return fmt.Errorf("--trusted-origin is required")
			}
			if hostOrigin == "" {
				return fmt.Errorf("--host-origin is required")
			}

			var handler slog.Handler
			if logJSON {
				handler = slog.NewJSONHandler(os.Stderr, nil)
			} else {
				handler = slog.NewTextHandler(os.Stderr, nil)
			}
			logger := slog.New(handler)
			slog.SetDefault(logger)

			pinger := &http.Client{Timeout: 5 * time.Second}

			cfg := bridge.DefaultConfig()
			cfg.Address = addr
			cfg.Host = &host.Config{
				TrustedOrigin:  trustedOrigin,
				HostOrigin:     hostOrigin,
				PluginVersion:  pluginVersion,
				CookiesEnabled: true,
				FluidReporting: !noFluid,
				ImpressionPing: func(url string) {
					resp, err := pinger.Get(url)
					if err != nil {
						logger.Warn("impression ping failed", "url", url, "error", err)
						return
					}
					resp.Body.Close()
				},
			}

			metrics := host.NewMetrics(nil)
			return bridge.New(cfg, logger, metrics).Run()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&trustedOrigin, "trusted-origin", "", "the only origin creative messages are accepted from")
	cmd.Flags().StringVar(&hostOrigin, "host-origin", "", "origin advertised to creatives as hostPeerName")
	cmd.Flags().StringVar(&pluginVersion, "plugin-version", "", "plugin version string exposed in registration metadata")
	cmd.Flags().BoolVar(&noFluid, "no-fluid", false, "disable creative geometry reporting (fluid resizes)")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "emit JSON logs")

	return cmd
}

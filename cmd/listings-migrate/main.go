// Package main is the entry point for the listings-migrate tool.
package main

import (
	"fmt"
	"os"

	"github.com/evcraddock/estate-listings/internal/config"
	"github.com/evcraddock/estate-listings/internal/geocode"
	"github.com/evcraddock/estate-listings/internal/logging"
	"github.com/evcraddock/estate-listings/internal/migrate"
	"github.com/evcraddock/estate-listings/internal/migrate/commands"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(commands.ExitError)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(commands.ExitError)
	}
	logging.Setup(cfg.DevMode)

	root := commands.NewRootCmd(commands.Env{
		Config:   migrate.ConfigFromEnv(),
		Geocoder: geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent),
		In:       os.Stdin,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(commands.ExitCode(err))
	}
}

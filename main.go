// Copyright © 2023 Sloan Childers
package main

import (
	"github.com/osintami/sentrycam/base"
	"github.com/osintami/sentrycam/catalog"
	"github.com/osintami/sentrycam/sink"
	"github.com/rs/zerolog/log"
)

func main() {
	serverCfg := &Config{}
	sink.LoadEnv(serverCfg)
	sink.InitLogger(serverCfg.LogLevel)
	sink.PrintEnvironment()

	shutdown := sink.NewShutdownHandler()

	log.Info().Msg("It's alive!")

	cameras := &base.Cameras{}
	err := sink.LoadJson(serverCfg.CamerasFile, cameras)
	if err != nil {
		log.Fatal().Err(err).Str("component", "server").Str("file", serverCfg.CamerasFile).Msg("load cameras")
		return
	}

	var clips *catalog.Catalog
	if serverCfg.CatalogFile != "" {
		clips, err = catalog.New(serverCfg.CatalogFile)
		if err == nil {
			err = clips.Migrate()
		}
		if err != nil {
			log.Fatal().Err(err).Str("component", "server").Str("file", serverCfg.CatalogFile).Msg("catalog")
			return
		}
	}

	builder := NewBuilder(serverCfg, clips)
	registry, err := builder.Registry(cameras)
	if err != nil {
		log.Fatal().Err(err).Str("component", "server").Msg("cameras")
		return
	}
	registry.StartAll()

	shutdown.AddListener(registry.StopAll)
	shutdown.AddListener(builder.Close)
	if clips != nil {
		shutdown.AddListener(func() { clips.Close() })
	}

	var listing IClipCatalog
	if clips != nil {
		listing = clips
	}
	handlers := NewSentryServer(registry, listing, serverCfg)

	shutdown.Listen()

	err = sink.ListenAndServe(serverCfg.ListenAddr, "", "", handlers.Router())
	if err != nil {
		log.Error().Err(err).Str("component", "server").Msg("listen and serve")
	}
	shutdown.Shutdown()
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/theoremus-urban-solutions/timetable-snapshot/config"
	"github.com/theoremus-urban-solutions/timetable-snapshot/gtfs"
	"github.com/theoremus-urban-solutions/timetable-snapshot/gtfsrt"
	"github.com/theoremus-urban-solutions/timetable-snapshot/snapshot"
	"github.com/theoremus-urban-solutions/timetable-snapshot/updater"
)

func main() {
	configPath := flag.String("config", "config.yml", "configuration file")
	feedName := flag.String("feed", "", "feed name from config.feeds[]")
	gtfsStatic := flag.String("gtfsStatic", "", "static GTFS zip path or URL")
	tripUpdates := flag.String("tripUpdates", "", "GTFS-RT TripUpdates URL or file (overrides config)")
	once := flag.Bool("once", false, "apply a single batch and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	initLogging(*debug)

	if err := config.LoadAppConfig(*configPath); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	feed, ok := config.SelectFeed(*feedName)
	if !ok {
		log.Fatal().Str("feed", *feedName).Msg("no such feed configured")
	}
	tuURL := feed.TripUpdatesURL
	if *tripUpdates != "" {
		tuURL = *tripUpdates
	}
	if *gtfsStatic == "" {
		log.Fatal().Msg("-gtfsStatic is required")
	}

	loc, err := time.LoadLocation(config.Config.Updater.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", config.Config.Updater.Timezone).Msg("bad timezone")
	}
	propagation, err := updater.ParseBackwardsDelayPropagation(config.Config.Updater.BackwardsDelayPropagation)
	if err != nil {
		log.Fatal().Err(err).Msg("bad backwardsDelayPropagation")
	}

	log.Info().Str("source", *gtfsStatic).Str("feed", feed.FeedID).Msg("loading static schedule")
	model, err := gtfs.Load(*gtfsStatic, feed.FeedID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load static schedule")
	}

	src := snapshot.NewSource(
		time.Duration(*config.Config.Updater.MaxSnapshotFrequencyMS)*time.Millisecond,
		*config.Config.Updater.PurgeExpiredData,
	)
	handler := updater.NewTripUpdateHandler(model, feed.FeedID, propagation, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := newFetcher()
	interval := time.Duration(feed.ReadIntervalMS) * time.Millisecond
	timeout := time.Duration(feed.TimeoutMS) * time.Millisecond

	for {
		pollOnce(ctx, f, src, handler, tuURL, timeout)
		if *once {
			src.FlushBuffer()
			return
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func pollOnce(ctx context.Context, f *fetcher, src *snapshot.Source, handler *updater.TripUpdateHandler, url string, timeout time.Duration) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := f.fetch(fetchCtx, url)
	if err != nil {
		log.Error().Err(err).Msg("fetch failed")
		return
	}
	if data == nil {
		return
	}
	fm, err := gtfsrt.DecodeFeed(data)
	if err != nil {
		log.Error().Err(err).Msg("decode failed")
		return
	}

	var result updater.UpdateResult
	src.ApplyBatch(func(buf *snapshot.Buffer) {
		result = handler.Apply(buf, fm)
	})
	log.Info().
		Int("successes", result.Successes).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("applied trip updates")
	for _, e := range result.Errors {
		log.Debug().Str("kind", e.Kind.String()).Str("trip", e.TripID).Msg(e.Description)
	}
}

func initLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level)
}

// Command mapperd wires one device, two signals, and a linear map end to
// end: a "source" signal is declared with a range, a "destination"
// signal with an inverted range, and a linear map connects them. It then
// ingests one sample directly into the map, emits the result over the
// in-process looptransport (not a real network), and logs the frame that
// arrives on the destination path.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vincentgoudard/libmapper/internal/admin"
	"github.com/vincentgoudard/libmapper/internal/device"
	"github.com/vincentgoudard/libmapper/internal/expr/mockexpr"
	"github.com/vincentgoudard/libmapper/internal/mapengine"
	"github.com/vincentgoudard/libmapper/internal/message"
	"github.com/vincentgoudard/libmapper/internal/mlog"
	"github.com/vincentgoudard/libmapper/internal/transport/looptransport"
	"github.com/vincentgoudard/libmapper/internal/value"
)

// Config holds the demo's tunables.
type Config struct {
	SourcePath string
	DestPath   string
	QueueDepth int
	Verbose    bool
}

// DefaultConfig returns the demo's default wiring.
func DefaultConfig() Config {
	return Config{
		SourcePath: "/synth1/volume",
		DestPath:   "/mixer1/gain",
		QueueDepth: 64,
	}
}

// Demo owns the device, the map it drives, and the loop transport both
// ends share — the in-process analogue of the multicast fabric spec §1
// scopes out.
type Demo struct {
	config Config
	dev    *device.Device
	loop   *looptransport.Loop
	m      *mapengine.Map
}

// NewDemo builds the map and device per config, requesting linear mode
// once both slots know their type/length/range.
func NewDemo(config Config) (*Demo, error) {
	loop := looptransport.New(config.QueueDepth)
	dev := device.New(device.DefaultConfig(), loop)

	m := mapengine.New(1, mockexpr.New())
	m.SignalPath = config.DestPath
	m.Hook = func(ev mapengine.LifecycleEvent) {
		mlog.Logger.Info().
			Str("action", string(ev.Action)).
			Str("signal", ev.SignalPath).
			Str("correlation_id", ev.CorrelationID.String()).
			Msg("map lifecycle event")
	}

	srcType := byte('i')
	dstType := byte('f')
	srcLen := 1
	dstLen := 1
	srcMin := []float64{0}
	srcMax := []float64{10}
	dstMin := []float64{100}
	dstMax := []float64{0}
	boundMax := "clamp"
	modeName := "linear"

	if _, err := admin.Apply(m, admin.Message{
		SrcType: &srcType, DstType: &dstType,
		SrcLength: &srcLen, DstLength: &dstLen,
		SrcMin: srcMin, SrcMax: srcMax,
		DstMin: dstMin, DstMax: dstMax,
		BoundMax: &boundMax,
		Mode:     &modeName,
	}); err != nil {
		return nil, err
	}
	m.Establish()

	dev.AddMap(m, config.DestPath, config.SourcePath, 0)
	loop.Register(config.DestPath, func(path string, frame message.Frame, sourceAddr string) {
		mlog.Logger.Info().Str("path", path).Int("num_args", len(frame.Args)).Msg("observed emitted frame")
	})

	return &Demo{config: config, dev: dev, loop: loop, m: m}, nil
}

// Run starts the device's poll loop and feeds one sample through.
func (d *Demo) Run() {
	d.dev.Start()

	sample := value.Sample{Values: []value.Value{value.FromFloat64(value.Int32, 5)}}
	outcome, err := d.dev.Ingest(d.m, d.config.DestPath, 0, 0, sample)
	if err != nil {
		mlog.Logger.Error().Err(err).Msg("ingest failed")
		return
	}
	mlog.Logger.Info().Str("outcome", outcome.String()).Msg("ingested demo sample")
}

// Shutdown stops the device's poll loop, honoring ctx as an upper bound.
func (d *Demo) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.dev.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		mlog.Logger.Warn().Msg("shutdown timed out waiting for poll loop")
	}
}

func main() {
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		mlog.SetLevel(zerolog.DebugLevel)
	}

	demo, err := NewDemo(DefaultConfig())
	if err != nil {
		mlog.Logger.Fatal().Err(err).Msg("failed to build demo map")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		mlog.Logger.Info().Msg("received shutdown signal")
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
		defer shutdownCancel()
		demo.Shutdown(shutdownCtx)
		os.Exit(0)
	}()

	demo.Run()
	time.Sleep(200 * time.Millisecond)
	demo.Shutdown(ctx)
}

// The unshake command stabilizes a shaky video file: it decodes the input,
// runs the stabilization pipeline, and encodes the cropped result.
package main

import (
	"context"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/edaniels/golog"
	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unshake/unshake/keypoints"
	"github.com/unshake/unshake/stabilize"
	"github.com/unshake/unshake/videoio"
	"github.com/unshake/unshake/vimage"
)

func main() {
	app := &cli.App{
		Name:  "unshake",
		Usage: "stabilize a shaky video",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "input video file"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output video file (default: <in>_stabilized.mp4)"},
			&cli.StringFlag{Name: "options", Usage: "JSON file overriding pipeline options"},
			&cli.Int64Flag{Name: "seed", Usage: "RANSAC sampler seed", Value: 0},
			&cli.StringFlag{Name: "debug-matches", Usage: "directory for keypoint debug plots of the first frame pair"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// newLoggerConfig returns the console zap config, with stacktraces disabled
// and colored levels.
func newLoggerConfig(debug bool) zap.Config {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.Config{
		Level:    level,
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

func newLogger(debug bool) golog.Logger {
	logger, err := newLoggerConfig(debug).Build()
	if err != nil {
		return golog.NewLogger("unshake")
	}
	return logger.Sugar().Named("unshake")
}

func run(c *cli.Context) error {
	logger := newLogger(c.Bool("debug"))
	inPath := c.String("in")
	outPath := c.String("out")
	if outPath == "" {
		ext := filepath.Ext(inPath)
		outPath = inPath[:len(inPath)-len(ext)] + "_stabilized.mp4"
	}

	opts := stabilize.DefaultOptions()
	if optsPath := c.String("options"); optsPath != "" {
		loaded, err := stabilize.LoadOptions(optsPath)
		if err != nil {
			return err
		}
		opts = loaded
	}
	if c.IsSet("seed") {
		opts.RNGSeed = c.Int64("seed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	frames, md, err := videoio.ReadVideo(ctx, inPath, logger)
	if err != nil {
		return err
	}
	logger.Infow("decoded input", "frames", len(frames), "elapsed", time.Since(start))

	if dir := c.String("debug-matches"); dir != "" && len(frames) >= 2 {
		if err := plotFirstPair(frames, opts, dir, logger); err != nil {
			logger.Warnw("cannot plot debug matches", "error", err)
		}
	}

	bar, err := pterm.DefaultProgressbar.WithTotal(100).WithTitle("stabilizing").Start()
	if err != nil {
		return err
	}
	currentStage := ""
	progress := func(stage string, fraction float64) {
		if stage != currentStage {
			currentStage = stage
			bar.UpdateTitle(stage)
		}
		if target := int(fraction * 100); target > bar.Current {
			bar.Add(target - bar.Current)
		}
	}

	stabStart := time.Now()
	result, err := stabilize.Stabilize(ctx, frames, md, opts, progress, logger)
	if _, stopErr := bar.Stop(); stopErr != nil {
		logger.Debugw("cannot stop progress bar", "error", stopErr)
	}
	if err != nil {
		return err
	}
	logger.Infow("stabilized", "crop", result.Crop, "warnings", len(result.Warnings), "elapsed", time.Since(stabStart))

	if err := videoio.WriteVideo(ctx, outPath, result.Frames, result.Metadata, logger); err != nil {
		return err
	}
	pterm.Success.Printfln("wrote %s (%dx%d, %d frames)", outPath, result.Crop.Size, result.Crop.Size, len(result.Frames))
	return nil
}

// plotFirstPair writes keypoint and match plots for the first frame pair,
// matching what the original tool rendered in its match view.
func plotFirstPair(frames []*image.RGBA, opts *stabilize.Options, dir string, logger golog.Logger) error {
	grayA := vimage.MakeGray(frames[1])
	grayB := vimage.MakeGray(frames[0])
	kpsA, descsA, err := keypoints.ComputeKeypointsAndDescriptors(grayA, opts.Detector, opts.Pyramid)
	if err != nil {
		return err
	}
	kpsB, descsB, err := keypoints.ComputeKeypointsAndDescriptors(grayB, opts.Detector, opts.Pyramid)
	if err != nil {
		return err
	}
	matches, err := keypoints.MatchDescriptors(descsA, descsB, opts.Matching, logger)
	if err != nil {
		return err
	}
	mkpsA, mkpsB, err := keypoints.GetMatchingKeyPoints(matches, kpsA, kpsB)
	if err != nil {
		return err
	}
	if err := keypoints.PlotKeypoints(grayA, kpsA, filepath.Join(dir, "keypoints_frame1.png")); err != nil {
		return err
	}
	return keypoints.PlotMatchedLines(grayA, grayB, mkpsA, mkpsB, nil, filepath.Join(dir, "matches_0_1.png"))
}

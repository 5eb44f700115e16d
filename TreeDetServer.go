package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	adhoc "TreeDetServer/Adhoc"
	"TreeDetServer/annotator"
	"TreeDetServer/classes"
	"TreeDetServer/config"
	"TreeDetServer/engine"
	backend "TreeDetServer/gRPC"
	"TreeDetServer/logger"
	"TreeDetServer/monitor"
	"TreeDetServer/pipeline"
	"TreeDetServer/web"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "treedet",
		Usage: "detect, annotate and count trees by health class",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP, websocket and gRPC annotate services",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Value:   config.DefaultPath,
						Usage:   "Load configuration from `FILE`",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}
					return serve(c.Context, cfg)
				},
			},
			{
				Name:      "annotate",
				Usage:     "annotate one image and print the class counts",
				ArgsUsage: "IMAGE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Value:   config.DefaultPath,
						Usage:   "Load configuration from `FILE` (local detection only)",
					},
					&cli.StringFlag{
						Name:  "server",
						Usage: "annotate through the gRPC service at `ADDR` instead of locally",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   "annotated.png",
						Usage:   "write the annotated image to `FILE`",
					},
				},
				Action: annotateCmd,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newAnnotator applies the render settings to the default label font.
func newAnnotator(cfg config.Render) *annotator.Annotator {
	font := annotator.DefaultFont()
	font.Scale = cfg.FontScale
	font.Alpha = cfg.LabelAlpha
	return annotator.New(annotator.WithFont(font), annotator.WithLineThickness(cfg.LineThickness))
}

// checkLabels fails when the model's names file or the pinned tag disagree
// with the built-in label set.
func checkLabels(cfg config.Labels) error {
	if cfg.NamesFile != "" {
		ns, err := classes.LoadNames(cfg.NamesFile)
		if err != nil {
			return err
		}
		if err := classes.VerifyNames(ns); err != nil {
			return err
		}
	}
	return classes.CheckTag(cfg.Tag)
}

func serve(parent context.Context, cfg *config.Config) (err error) {
	if err := logger.Init(cfg.Development); err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer logger.Sync()
	log := logger.Log()

	if err := checkLabels(cfg.Labels); err != nil {
		return err
	}

	cpuNum := runtime.NumCPU()
	log.Info("starting",
		zap.Int("httpPort", cfg.HTTPPort),
		zap.Int("rpcPort", cfg.RPCPort),
		zap.Int("metricsPort", cfg.MetricsPort),
		zap.Int("workers", cfg.WorkersNum),
		zap.Int("cpus", cpuNum),
		zap.String("backend", cfg.Detector.Backend),
		zap.String("labelTag", classes.Tag()),
	)
	if cfg.WorkersNum > cpuNum {
		log.Warn("workersNum exceeds CPU cores, which may lead to performance degradation")
	}

	detector := engine.FromConfig(cfg.Detector)
	pool := pipeline.NewPool(pipeline.New(detector, newAnnotator(cfg.Render)), cfg.WorkersNum)
	defer func() {
		pool.Close()
		err = multierr.Append(err, detector.Destroy())
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rpc := backend.NewServer(pool)
	grpcServer, err := backend.StartGRPCServer(cfg.RPCPort, rpc)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	httpErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		httpErr <- web.Serve(ctx, cfg.HTTPPort, pool)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.StartMon(cfg.MetricsPort, ctx)
	}()

	if cfg.Registry.Enabled {
		ip := cfg.Registry.AdvertiseIP
		if ip == "" {
			if ip, err = adhoc.GetOutboundIP(); err != nil {
				cancel()
				grpcServer.GracefulStop()
				wg.Wait()
				return err
			}
		}
		wg.Add(1)
		go adhoc.NewHeartbeat(cfg.Registry, ip, cfg.RPCPort).Run(ctx, &wg)
	} else {
		log.Info("registry disabled, skipping registration")
	}

	select {
	case <-ctx.Done():
		log.Warn("signal received, shutting down")
	case <-rpc.Done():
		log.Warn("shutdown requested, shutting down")
	case err = <-httpErr:
		log.Error("http server failed", zap.Error(err))
	}
	cancel()
	grpcServer.GracefulStop()
	wg.Wait()
	log.Info("safely exited")
	return err
}

func annotateCmd(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing IMAGE argument", 2)
	}
	if err := pipeline.CheckFilename(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &pipeline.InputError{Reason: "image could not be read", Err: err}
	}

	ctx, cancel := context.WithTimeout(c.Context, 2*time.Minute)
	defer cancel()

	var out *pipeline.Output
	if addr := c.String("server"); addr != "" {
		client, err := backend.Dial(addr)
		if err != nil {
			return err
		}
		defer client.Close()
		if out, err = client.Annotate(ctx, data); err != nil {
			return err
		}
	} else {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		if err := logger.Init(cfg.Development); err != nil {
			return errors.Wrap(err, "init logger")
		}
		defer logger.Sync()
		if err := checkLabels(cfg.Labels); err != nil {
			return err
		}
		detector := engine.FromConfig(cfg.Detector)
		defer detector.Destroy()
		if out, err = pipeline.New(detector, newAnnotator(cfg.Render)).Run(ctx, "cli", data); err != nil {
			return err
		}
	}

	if err := os.WriteFile(c.String("out"), out.Image, 0o644); err != nil {
		return errors.Wrap(err, "write annotated image")
	}
	fmt.Fprintln(c.App.Writer, countsTable(out))
	fmt.Fprintf(c.App.Writer, "Annotated image written to %s\n", c.String("out"))
	return nil
}

// countsTable lists every class in label order with the total as the footer.
func countsTable(out *pipeline.Output) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Class", "Count"})
	for _, e := range out.Counts {
		t.AppendRow(table.Row{e.Label, e.Count})
	}
	t.AppendFooter(table.Row{"Total Trees Detected", out.Total})
	return strings.TrimRight(t.Render(), "\n")
}

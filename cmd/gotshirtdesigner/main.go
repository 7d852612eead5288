/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"gotshirtdesigner/internal/artifact"
	"gotshirtdesigner/internal/config"
	"gotshirtdesigner/internal/crash"
	"gotshirtdesigner/internal/crop"
	"gotshirtdesigner/internal/imaging"
	applog "gotshirtdesigner/internal/log"
	"gotshirtdesigner/internal/script"
	"gotshirtdesigner/internal/server"
	"gotshirtdesigner/internal/session"
	"gotshirtdesigner/internal/telemetry"
	"gotshirtdesigner/internal/version"
)

const previewSize = 400

func usage() {
	fmt.Println("Go T-Shirt Designer")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gotshirtdesigner version|-v|--version              Show version")
	fmt.Println("  gotshirtdesigner run <script.json> [outDir]        Run a design script headless")
	fmt.Println("  gotshirtdesigner crop-preview <image> <out.png> [zoom]  Render the crop dialog preview")
	fmt.Println("  gotshirtdesigner serve                             Serve published exports for download")
	fmt.Println("  gotshirtdesigner config path                       Print the config file location")
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, token, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}
	telemetry.Configure(cfg.General.TelemetryOptIn)
	defer crash.Recover(nil)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	if err := cfg.Validate(); err != nil {
		fail(l, "invalid config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Go T-Shirt Designer")
		fmt.Println(version.String())
	case "run":
		if len(args) < 3 {
			fmt.Println("run requires <script.json>")
			usage()
			os.Exit(2)
		}
		outDir := cfg.Export.OutDir
		if len(args) >= 4 {
			outDir = args[3]
		}
		if err := runScript(ctx, cfg, args[2], outDir); err != nil {
			fail(l, "run failed", err)
		}
	case "crop-preview":
		if len(args) < 4 {
			fmt.Println("crop-preview requires <image> and <out.png>")
			usage()
			os.Exit(2)
		}
		zoom := crop.DefaultZoom
		if len(args) >= 5 {
			z, err := strconv.ParseFloat(args[4], 64)
			if err != nil {
				fmt.Println("zoom must be a number:", args[4])
				os.Exit(2)
			}
			zoom = z
		}
		if err := cropPreview(args[2], args[3], zoom); err != nil {
			fail(l, "crop preview failed", err)
		}
	case "serve":
		if err := serve(ctx, cfg, token); err != nil {
			fail(l, "serve failed", err)
		}
	case "config":
		if len(args) < 3 || args[2] != "path" {
			fmt.Println("config supports: path")
			os.Exit(2)
		}
		p, err := config.ConfigPath()
		if err != nil {
			fail(l, "config path", err)
		}
		fmt.Println(p)
	default:
		usage()
		os.Exit(2)
	}
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func runScript(ctx context.Context, cfg config.AppConfig, path, outDir string) error {
	l := applog.WithOperation(applog.WithComponent("cli"), "run")
	sc, err := script.ParseFile(path)
	if err != nil {
		return err
	}

	var store artifact.Store
	if cfg.Artifacts.Kind != "" {
		if store, err = artifact.Open(ctx, cfg.Artifacts); err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				l.Warn("close artifact store", slog.Any("err", err))
			}
		}()
	}

	opt := session.Options{
		Width:      cfg.Canvas.Width,
		Height:     cfg.Canvas.Height,
		Background: cfg.Canvas.Background,
		Store:      store,
	}
	if cfg.General.ShirtColor != "" {
		opt.Background = cfg.General.ShirtColor
	}
	if sc.Canvas.Width > 0 {
		opt.Width = sc.Canvas.Width
	}
	if sc.Canvas.Height > 0 {
		opt.Height = sc.Canvas.Height
	}
	if sc.Canvas.Background != "" {
		opt.Background = sc.Canvas.Background
	}
	s, err := session.New(opt)
	if err != nil {
		return err
	}
	untrack := crash.Track(s)
	defer untrack()
	defer func() { _ = s.Close() }()

	base, _ := filepath.Abs(filepath.Dir(path))
	r := script.NewRunner(s, script.Options{BaseDir: base, OutDir: outDir, FileName: cfg.Export.FileName})
	res, err := r.Run(ctx, sc)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Println("wrote", f)
	}
	for _, m := range res.Published {
		fmt.Printf("published %s (%s, %d bytes)\n", m.ID, m.Name, m.Size)
	}
	l.Info("script done", slog.String("script", path), slog.Int("actions", res.Actions))
	return nil
}

func cropPreview(in, out string, zoom float64) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	cs, err := crop.Begin(data)
	if err != nil {
		return err
	}
	z := cs.ZoomTo(zoom)
	img, err := cs.Preview(previewSize, previewSize)
	if err != nil {
		return err
	}
	b, err := imaging.EncodePNG(img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return err
	}
	r := cs.Rect()
	fmt.Printf("crop %dx%d at (%d,%d), zoom %.1f -> %s\n", r.Dx(), r.Dy(), r.Min.X, r.Min.Y, z, out)
	return nil
}

func serve(ctx context.Context, cfg config.AppConfig, token string) error {
	l := applog.WithOperation(applog.WithComponent("cli"), "serve")
	if cfg.Artifacts.Kind == "" || cfg.Artifacts.Kind == "memory" {
		return errors.New("serve needs a persistent artifacts.kind (filesystem, sqlite, postgres or s3)")
	}
	store, err := artifact.Open(ctx, cfg.Artifacts)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Warn("close artifact store", slog.Any("err", err))
		}
	}()
	if token == "" {
		l.Warn("no server token configured; /api is unauthenticated")
	}
	return server.Serve(ctx, server.Addr(cfg.Server.Addr), server.NewRouter(store, server.Options{Token: token}))
}

// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/pflag"

	"github.com/ffutop/modbus-sniffer/internal/capture"
	"github.com/ffutop/modbus-sniffer/internal/config"
	"github.com/ffutop/modbus-sniffer/internal/sniffer"
	"github.com/ffutop/modbus-sniffer/transport/serialport"
)

func main() {
	// Load Configuration
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if cfg.ListPorts {
		if err := listPorts(); err != nil {
			slog.Error("Failed to list serial ports", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("Sniffer stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("Goodbye.")
}

func run(cfg *config.Config) error {
	slog.Info("Starting Modbus Sniffer...", "device", cfg.Serial.Device, "baudRate", cfg.Serial.BaudRate, "mode", cfg.Sniffer.Mode, "capture", cfg.Capture.Type)

	store, err := capture.Open(cfg.Capture)
	if err != nil {
		return fmt.Errorf("failed to open capture store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	port := serialport.New(cfg.Serial)
	if err := port.Connect(ctx); err != nil {
		return err
	}
	defer port.Close()

	s, err := sniffer.New(port, cfg.Sniffer, cfg.Serial.BaudRate, store)
	if err != nil {
		return err
	}

	if cfg.Send != "" {
		payload, err := sniffer.ParsePayload(cfg.Send)
		if err != nil {
			return err
		}
		if err := s.Send(ctx, payload); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		runErr = s.Run(ctx)
	}()

	// Wait for Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		slog.Info("Shutting down...")
	case <-ctx.Done():
	}
	cancel()
	// Closing the port unblocks a pending read.
	port.Close()
	wg.Wait()

	if cfg.Export != "" {
		if err := export(store, cfg.Export); err != nil {
			return err
		}
	}
	return runErr
}

func listPorts() error {
	ports, err := serialport.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
	}
	for _, name := range ports {
		fmt.Println(name)
	}
	return nil
}

func export(store capture.Store, path string) error {
	entries, err := store.Entries()
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := capture.WriteCSV(f, entries); err != nil {
		f.Close()
		return err
	}
	slog.Info("Exported capture", "path", path, "entries", len(entries))
	return f.Close()
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

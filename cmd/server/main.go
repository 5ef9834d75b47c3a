package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brightloop/geoscore-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		a.Log.Info("Signal received, shutting down", "signal", s.String())
		a.Close()
		os.Exit(0)
	}()

	a.Log.Info("Server listening", "addr", a.Cfg.Addr)
	if err := a.Run(""); err != nil {
		a.Log.Error("Server failed", "error", err)
	}
}

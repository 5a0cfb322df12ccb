package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soulkun/soulkun-backend/internal/app"
	"github.com/soulkun/soulkun-backend/internal/platform/envutil"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		a.Log.Info("Shutdown signal received")
		a.Close()
		os.Exit(0)
	}()

	port := envutil.String("PORT", "8080")
	a.Log.Info("Server listening", "port", port)
	if err := a.Run(":" + port); err != nil {
		a.Log.Error("Server failed", "error", err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unifw/internal/unifw"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// First interrupt cancels gracefully; during the critical artifact
	// copy it is held back and a second interrupt forces exit.
	go func() {
		for {
			select {
			case sig := <-sigs:
				if unifw.InCritical() {
					fmt.Printf("\n[WARNING] Artifact copy in progress. Press Ctrl+C AGAIN to force exit NOW.\n")
					select {
					case <-sigs:
						fmt.Println("\n[FATAL] Forced immediate exit.")
						os.Exit(130)
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				} else {
					fmt.Printf("\n[INFO] Received %v. Cancelling build gracefully...\n", sig)
					cancel()
					select {
					case <-sigs:
						fmt.Println("\n[FATAL] Second interrupt received. Forcing immediate exit.")
						os.Exit(130)
					case <-time.After(500 * time.Millisecond):
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if path := os.Getenv("UNIFW_CONF"); path != "" {
		unifw.ConfigFile = path
	}
	cfg, err := unifw.LoadConfig(unifw.ConfigFile)
	if err != nil {
		unifw.Fatal(err)
	}
	unifw.Debug = cfg.Bool("UNIFW_DEBUG")

	command := "build"
	var args []string
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}

	env := unifw.CaptureEnv()

	switch command {
	case "build":
		os.Exit(unifw.RunBuildCommand(ctx, cfg))
	case "state":
		if err := unifw.HandleStateCommand(env); err != nil {
			unifw.Fatal(err)
		}
	case "manifest":
		if err := unifw.HandleManifestCommand(env, args); err != nil {
			unifw.Fatal(err)
		}
	case "dist":
		if err := unifw.HandleDistCommand(cfg, env, args); err != nil {
			unifw.Fatal(err)
		}
	case "upload":
		cleanup := false
		for _, arg := range args {
			if arg == "--cleanup" || arg == "-c" {
				cleanup = true
			}
		}
		if err := unifw.HandleUploadCommand(ctx, cfg, env, cleanup); err != nil {
			unifw.Fatal(err)
		}
	case "log":
		if err := unifw.HandleLogCommand(env, args); err != nil {
			unifw.Fatal(err)
		}
	case "version", "--version":
		unifw.PrintVersion()
	case "help", "-h", "--help":
		unifw.PrintHelp()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		unifw.PrintHelp()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"tableflow/internal/notifier"
	"tableflow/internal/orderhub"
	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/xpkg/logger"
)

func main() {
	fs := flag.NewFlagSet("tableflow", flag.ExitOnError)
	mode := fs.String("mode", "", "service to run: order-hub | notification-subscriber")

	// Only parse up to --mode; everything after goes to the service.
	modeArgs, remainingArgs := splitModeArgs(os.Args[1:])
	if err := fs.Parse(modeArgs); err != nil {
		help(fs)
		os.Exit(1)
	}
	if *mode == "" {
		help(fs)
		os.Exit(1)
	}

	ctx := context.Background()
	switch *mode {
	case "order-hub", "hub":
		mylog := logger.New("order-hub")
		if err := orderhub.Execute(ctx, mylog, remainingArgs); err != nil && !errors.Is(err, core.ErrHelp) {
			mylog.Action("order_hub_failed").Error("order-hub exited with error", err)
			os.Exit(1)
		}
	case "notification-subscriber", "ns":
		mylog := logger.New("notification-subscriber")
		if err := notifier.Execute(ctx, mylog, remainingArgs); err != nil && !errors.Is(err, core.ErrHelp) {
			mylog.Action("notification_subscriber_failed").Error("notification-subscriber exited with error", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("unknown mode: %s\n", *mode)
		help(fs)
		os.Exit(1)
	}
}

// splitModeArgs separates the --mode flag, with its value in either
// "--mode=x" or "--mode x" form, from the service-specific arguments that
// follow it.
func splitModeArgs(args []string) (modeArgs, rest []string) {
	for i, arg := range args {
		if strings.HasPrefix(arg, "--mode") || strings.HasPrefix(arg, "-mode") {
			end := i + 1
			if !strings.Contains(arg, "=") && end < len(args) {
				end++
			}
			return args[:end], args[end:]
		}
	}
	return nil, args
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  ./tableflow --mode=order-hub --port=3000")
	fmt.Println("  ./tableflow --mode=notification-subscriber --restaurant=rest-1 --stations=grill,pizza")
}

// Command formwatch follows a server's live event stream and prints each
// event, optionally scoped to one form's topic.
//
//	formwatch -url ws://localhost:8080/ws [-form <uuid>]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/formforge/formpulse/internal/wsclient"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "event socket URL")
	formID := flag.String("form", "", "form id to subscribe to (empty watches all forms)")
	attempts := flag.Int("attempts", 5, "max consecutive reconnect attempts")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := wsclient.NewClient(*url, *formID, printEvent, wsclient.WithMaxAttempts(*attempts))

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Watch ended", "error", err)
		os.Exit(1)
	}
}

func printEvent(event domain.Event) {
	line, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to render event", "error", err)
		return
	}
	fmt.Println(string(line))
}

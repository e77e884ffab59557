// Command order-watch follows orders the way the tracking page and the staff
// board do: it prints every status change as it is derived on the client.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cafe-app/realtime"
	"github.com/yeremiapane/cafe-app/tracker"
	"github.com/yeremiapane/cafe-app/utils"
)

func main() {
	server := flag.String("server", envOr("CAFE_SERVER", "http://localhost:8080"), "API base URL")
	token := flag.String("token", os.Getenv("CAFE_TOKEN"), "staff JWT; empty follows orders as a guest")
	orders := flag.String("orders", "", "comma-separated order ids to follow (required without -token)")
	status := flag.String("status", "", "status filter for the staff list, e.g. pending_verification,preparing")
	poll := flag.Duration("poll", 10*time.Second, "poll interval while the websocket is down")
	flag.Parse()

	utils.InitLogger()

	ids := splitList(*orders)
	if *token == "" && len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "order-watch: pass -orders when running without -token")
		os.Exit(2)
	}

	wsURL, err := websocketURL(*server)
	if err != nil {
		utils.ErrorLogger.Fatalf("invalid -server: %v", err)
	}

	opts := tracker.DefaultOptions()
	opts.PollInterval = *poll

	fetcher := &tracker.HTTPFetcher{BaseURL: strings.TrimRight(*server, "/"), Token: *token, OrderIDs: ids}
	if *status != "" {
		fetcher.Query = url.Values{"status": {*status}}
	}

	stream := tracker.NewWSStream(wsURL, *token, opts)
	for _, id := range ids {
		_ = stream.Join(realtime.OrderRoom(id))
	}
	if *token != "" && len(ids) == 0 {
		_ = stream.Join(realtime.StaffRoom)
	}

	engine := tracker.NewEngine(opts)
	runner := tracker.NewRunner(engine, fetcher, stream, opts, func(u tracker.Update) {
		for _, a := range u.Alerts {
			printAlert(engine, a)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	utils.InfoLogger.Printf("Watching %s", *server)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		utils.ErrorLogger.Fatalf("order-watch stopped: %v", err)
	}
}

func printAlert(engine *tracker.Engine, a tracker.Alert) {
	v, ok := engine.View(a.OrderID)
	if !ok {
		return
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"order":    v.OrderNumber,
		"kind":     a.Kind,
		"status":   v.DisplayStatus,
		"payment":  v.PaymentStatus,
		"progress": v.Progress,
	}).Infof("%s: %s (%d%%)", v.CustomerName, v.Label, v.Progress)
}

func websocketURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// meshreport is a small operator tool: it summarizes the most recent
// analyzer records, and can generate fake credentials used to seed
// decoy lures.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"aegismesh/pkg/config"
	"aegismesh/pkg/eventlog"
	"aegismesh/pkg/meshclient"
	"aegismesh/pkg/telemetry"
)

var lureUsernames = []string{"admin", "root", "test", "user", "administrator", "webadmin"}

const lurePasswordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*()"

func main() {
	config.Load()

	controller := flag.String("controller", config.Get("CONTROLLER_URL", "http://localhost:9000"), "analyzer base URL")
	limit := flag.Int("limit", 10, "number of records to summarize")
	mode := flag.String("mode", "report", "report or creds")
	count := flag.Int("count", 5, "number of fake credentials in creds mode")
	flag.Parse()

	switch *mode {
	case "report":
		if err := report(*controller, *limit); err != nil {
			fmt.Fprintln(os.Stderr, "meshreport:", err)
			os.Exit(1)
		}
	case "creds":
		creds(*count)
	default:
		fmt.Fprintln(os.Stderr, "meshreport: unknown mode", *mode)
		os.Exit(1)
	}
}

func report(controller string, limit int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := meshclient.New(controller, 5*time.Second)
	records, err := client.FetchEvents(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Printf("Last %d records:\n", len(records))
	for _, raw := range records {
		// Scored records wrap the event; raw records are the event itself.
		var scored eventlog.ScoredRecord
		if err := json.Unmarshal(raw, &scored); err == nil && scored.ScoredEvent.Service != "" {
			printEvent(scored.ScoredEvent)
			continue
		}
		var ev telemetry.Event
		if err := json.Unmarshal(raw, &ev); err == nil && ev.Service != "" {
			printEvent(ev)
		}
	}
	return nil
}

func printEvent(ev telemetry.Event) {
	score := "-"
	if ev.RiskScore != nil {
		score = fmt.Sprintf("%.3f", *ev.RiskScore)
	}
	fmt.Printf("%s  %-15s %-8s %-20s score: %s\n", ev.Timestamp, ev.SourceIP, ev.Service, ev.Path, score)
}

func creds(count int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < count; i++ {
		user := lureUsernames[rng.Intn(len(lureUsernames))]
		pass := make([]byte, 12)
		for j := range pass {
			pass[j] = lurePasswordChars[rng.Intn(len(lurePasswordChars))]
		}
		fmt.Printf("{\"username\": %q, \"password\": %q}\n", user, string(pass))
	}
}

// Command seed posts synthetic perceived events against a running triaged
// instance, for smoke testing the analysis pipeline end to end.
package main

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Default configuration constants.
const (
	defaultNumEvents = 50
	defaultTimeout   = 10 * time.Second
	ephemeralShare   = 4 // one in four events is ephemeral
	highStakesShare  = 8 // one in eight events is high stakes
)

type entity struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type eventRequest struct {
	EventID    string   `json:"event_id"`
	Source     string   `json:"source"`
	Content    string   `json:"content"`
	Entities   []entity `json:"entities"`
	Ephemeral  bool     `json:"ephemeral"`
	HighStakes bool     `json:"high_stakes"`
}

var sources = []string{"email", "message", "calendar"}

var templates = []struct {
	content  string
	entities []entity
}{
	{
		content:  "Reminder: quarterly planning session next week, agenda attached.",
		entities: []entity{{Kind: "topic", Value: "planning"}, {Kind: "team", Value: "platform"}},
	},
	{
		content:  "Vendor contract is up for renewal, finance needs the paperwork.",
		entities: []entity{{Kind: "topic", Value: "vendor"}, {Kind: "team", Value: "finance"}},
	},
	{
		content:  "Your weekly digest: ten articles you may have missed.",
		entities: []entity{{Kind: "topic", Value: "newsletter"}},
	},
	{
		content:  "Oncall handoff notes from last night's incident.",
		entities: []entity{{Kind: "topic", Value: "oncall"}},
	},
	{
		content:  "Travel request for the offsite needs approval by Friday.",
		entities: []entity{{Kind: "topic", Value: "travel"}, {Kind: "topic", Value: "policy"}},
	},
}

func randomBelow(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numEvents = flag.Int("events", defaultNumEvents, "Number of events to submit")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	accepted, duplicates, failures := 0, 0, 0

	for i := 0; i < *numEvents; i++ {
		tmpl := templates[randomBelow(len(templates))]
		req := eventRequest{
			EventID:    uuid.NewString(),
			Source:     sources[randomBelow(len(sources))],
			Content:    fmt.Sprintf("%s (batch %d)", tmpl.content, i),
			Entities:   tmpl.entities,
			Ephemeral:  randomBelow(ephemeralShare) == 0,
			HighStakes: randomBelow(highStakesShare) == 0,
		}

		body, err := json.Marshal(req)
		if err != nil {
			failures++
			continue
		}
		resp, err := client.Post(*baseURL+"/events", "application/json", bytes.NewReader(body))
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "post failed: %v\n", err)
			continue
		}
		switch resp.StatusCode {
		case http.StatusAccepted:
			accepted++
		case http.StatusOK:
			duplicates++
		default:
			failures++
		}
		_ = resp.Body.Close()
	}

	fmt.Printf("submitted %d events: %d accepted, %d duplicates, %d failures\n",
		*numEvents, accepted, duplicates, failures)
}

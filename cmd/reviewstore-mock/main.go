// reviewstore-mock is a local stand-in for the review record service. It
// seeds a deterministic synthetic history and serves the query endpoint the
// insight engine expects, so the pipeline can be exercised end to end without
// the real store.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/models"
	"github.com/nimb-ou/peer-review-system/internal/repo"
)

func main() {
	var addr string
	var days int
	flag.StringVar(&addr, "addr", ":9090", "listen address")
	flag.IntVar(&days, "days", 60, "days of synthetic history")
	flag.Parse()

	store := repo.NewMemoryStore()
	seedHistory(store, days)
	log.Printf("seeded %d synthetic review events", store.Len())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/reviews/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var query struct {
			Start      string `json:"start"`
			End        string `json:"end"`
			RevieweeID string `json:"reviewee_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
			http.Error(w, "invalid query", http.StatusBadRequest)
			return
		}

		q := repo.EventQuery{RevieweeID: query.RevieweeID}
		if t, err := time.Parse(time.RFC3339, query.Start); err == nil {
			q.Start = t
		}
		if t, err := time.Parse(time.RFC3339, query.End); err == nil {
			q.End = t
		}

		events, err := store.FetchEvents(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"events": events})
	})

	log.Printf("reviewstore-mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// seedHistory generates a reproducible team history. emp-04 degrades over the
// final ten days so anomaly detection has something to find.
func seedHistory(store *repo.MemoryStore, days int) {
	rng := rand.New(rand.NewSource(7))
	employees := []string{"emp-01", "emp-02", "emp-03", "emp-04", "emp-05", "emp-06"}
	end := models.Day(time.Now())

	for d := days; d > 0; d-- {
		date := end.AddDate(0, 0, -d)
		for _, reviewee := range employees {
			for _, reviewer := range employees {
				if reviewer == reviewee || rng.Float64() > 0.4 {
					continue
				}

				score := 3 + rng.Intn(3)
				descriptor := models.DescriptorCollaborative
				switch {
				case rng.Float64() < 0.15:
					descriptor = models.DescriptorNeutral
				case rng.Float64() < 0.05:
					descriptor = models.DescriptorWithdrawn
				}

				if reviewee == "emp-04" && d <= 10 {
					score = 1 + rng.Intn(2)
					descriptor = models.DescriptorWithdrawn
					if rng.Float64() < 0.3 {
						descriptor = models.DescriptorBlocking
					}
				}

				comment := ""
				if rng.Float64() < 0.5 {
					comment = "synthetic feedback"
				}

				event := models.ReviewEvent{
					ReviewerID: reviewer,
					RevieweeID: reviewee,
					Date:       date,
					Descriptor: descriptor,
					Score:      score,
					Comment:    comment,
				}
				if err := store.Upsert(event); err != nil {
					log.Fatalf("seed event: %v", err)
				}
			}
		}
	}
}

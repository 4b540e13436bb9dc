package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
)

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Publisher     *string  `json:"publisher,omitempty"`
	PublishedDate *string  `json:"publishedDate,omitempty"`
}

type volumeEntry struct {
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

func main() {
	var (
		port = flag.String("port", "9099", "port to listen on")
		data = flag.String("data", "mock-volumes.json", "path to mock data file keyed by ISBN")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var payload map[string]volumeEntry
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		isbn := strings.TrimPrefix(r.URL.Query().Get("q"), "isbn:")
		entry, ok := payload[isbn]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"totalItems": 0})
			return
		}
		resp := map[string]interface{}{
			"totalItems": 1,
			"items":      []volumeEntry{entry},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	addr := ":" + *port
	log.Printf("mock book lookup listening on %s with %d entries", addr, len(payload))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

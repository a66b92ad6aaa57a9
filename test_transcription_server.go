// Standalone mock of an OpenAI-compatible transcription endpoint, for
// exercising the daemon locally without an API key:
//
//	go run test_transcription_server.go
//
// Point transcription.endpoint at http://localhost:8085/v1 and any api_key
// value will be accepted.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type mockResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	model := r.FormValue("model")
	language := r.FormValue("language")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("transcription request: file=%s size=%d model=%s language=%s auth=%t",
		header.Filename, len(audioData), model, language, r.Header.Get("Authorization") != "")

	// Rough duration from 16-bit mono 16kHz WAV payload.
	seconds := float64(len(audioData)) / (16000 * 2)

	resp := mockResponse{
		Text:     fmt.Sprintf("mock transcript of %.1fs of audio captured at %s", seconds, time.Now().Format("15:04:05")),
		Language: "en",
		Duration: seconds,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func main() {
	http.HandleFunc("/v1/audio/transcriptions", transcribeHandler)

	addr := ":8085"
	log.Printf("mock transcription server listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}

// Command feedwatch opens live family feed connections against a running
// server. With one client it prints every frame; with more it reports
// connection and frame counts.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the run results.
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	FramesReceived       int64
	Errors               int64
}

var metrics Metrics

type frame struct {
	Type     string          `json:"type"`
	FamilyID string          `json:"family_id"`
	Payload  json.RawMessage `json:"payload"`
}

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	email := flag.String("email", "", "Member email")
	password := flag.String("password", "faithful123", "Member password")
	family := flag.String("family", "", "Family to watch; defaults to the member's own")
	clients := flag.Int("clients", 1, "Number of concurrent connections")
	duration := flag.Duration("duration", 0, "Stop after this long; 0 runs until interrupted")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Printf("Logged in as %s", *email)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	verbose := *clients == 1

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go watch(*host, token, *family, verbose, stop, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}
	select {
	case <-timeout:
		log.Println("Duration reached")
	case <-interrupt:
		log.Println("Interrupted")
	}

	close(stop)
	wg.Wait()
	printMetrics()
}

func login(host, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})

	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/login", host), "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func watch(host, token, family string, verbose bool, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	q := url.Values{"token": {token}}
	if family != "" {
		q.Set("family", family)
	}
	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws/feed", RawQuery: q.Encode()}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			log.Printf("Dial failed: %v (status %d)", err, resp.StatusCode)
		}
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&metrics.FramesReceived, 1)
			if verbose {
				printFrame(data)
			}
		}
	}()

	select {
	case <-stop:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-done:
		atomic.AddInt64(&metrics.Errors, 1)
	}
}

func printFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("unreadable frame: %s", data)
		return
	}
	var items []json.RawMessage
	if err := json.Unmarshal(f.Payload, &items); err != nil {
		log.Printf("[%s] %s: %s", f.FamilyID, f.Type, f.Payload)
		return
	}
	log.Printf("[%s] %s: %d items", f.FamilyID, f.Type, len(items))
}

func printMetrics() {
	log.Println("Results")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Frames Received: %d", atomic.LoadInt64(&metrics.FramesReceived))
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}

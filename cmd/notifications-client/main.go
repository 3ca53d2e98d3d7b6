package main

import (
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Streams quest and ledger events for one user. Point it at a server running with
// telegramAuth.debugMode so the unsigned init data is accepted.
func main() {
	addr := flag.String("addr", "ws://localhost:8888/api/v1/notifications/ws", "notifications endpoint")
	telegramID := flag.Int64("id", 5060715466, "telegram user id")
	initData := flag.String("init-data", "", "raw mini app init data; overrides -id")
	flag.Parse()

	if *initData == "" {
		v := url.Values{}
		v.Set("user", `{"id":`+strconv.FormatInt(*telegramID, 10)+`,"username":"cli"}`)
		v.Set("auth_date", "1677649900")
		v.Set("hash", "debug")
		*initData = v.Encode()
	}

	header := http.Header{}
	header.Add("Authorization", "Telegram "+*initData)

	conn, _, err := websocket.DefaultDialer.Dial(*addr, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer conn.Close()

	messageQueue := make(chan []byte)

	go func() {
		defer close(messageQueue)
		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				log.Println("read error:", err)
				return
			}

			messageQueue <- p
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case message, ok := <-messageQueue:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal(message, &event); err != nil {
				log.Printf("Received:\n%s\n", message)
				continue
			}
			pretty, err := json.MarshalIndent(event, "", "  ")
			if err != nil {
				log.Println("json marshal error:", err)
				continue
			}
			log.Printf("Received %s:\n%s\n", event.Type, pretty)

		case <-interrupt:
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
			}
			return
		}
	}
}

// Interactive websocket client for poking a running server from a
// terminal. Fetches a dev token, connects, prints every inbound event,
// and turns simple slash commands into protocol events.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	server := flagOr("CHAT_SERVER", "localhost:8080")
	name := flagOr("CHAT_NAME", "tester")

	token, err := fetchToken(server, name)
	if err != nil {
		log.Fatalf("token fetch failed: %v", err)
	}

	wsURL := url.URL{Scheme: "ws", Host: server, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	header := color.New(color.BgBlack, color.FgGreen).Render(fmt.Sprintf(" connected as %s ", name))
	fmt.Println(header)
	fmt.Println("commands: /join <room> | /leave <room> | /pm <principal> <text> | /typing <room> | /older <room> [cursor] | plain text sends to current room")

	go readLoop(conn)

	room := "global"
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event, payload := parseCommand(line, &room)
		if event == "" {
			continue
		}
		if err := writeEvent(conn, event, payload); err != nil {
			log.Fatalf("write failed: %v", err)
		}
	}
}

func readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			color.Red.Println("connection closed:", err)
			os.Exit(0)
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		tag := color.New(color.FgCyan).Render(env.Event)
		fmt.Printf("%s %s\n", tag, string(env.Payload))
	}
}

func parseCommand(line string, room *string) (string, any) {
	if !strings.HasPrefix(line, "/") {
		return "send_message", map[string]any{"roomId": *room, "body": line}
	}
	fields := strings.Fields(line)
	switch fields[0] {
	case "/join":
		if len(fields) < 2 {
			return "", nil
		}
		*room = fields[1]
		return "join_room", map[string]any{"roomId": fields[1]}
	case "/leave":
		if len(fields) < 2 {
			return "", nil
		}
		return "leave_room", map[string]any{"roomId": fields[1]}
	case "/pm":
		if len(fields) < 3 {
			return "", nil
		}
		return "private_message", map[string]any{
			"targetPrincipalId": fields[1],
			"body":              strings.Join(fields[2:], " "),
		}
	case "/typing":
		if len(fields) < 2 {
			return "", nil
		}
		return "typing", map[string]any{"roomId": fields[1], "isTyping": true}
	case "/older":
		if len(fields) < 2 {
			return "", nil
		}
		payload := map[string]any{"roomId": fields[1], "pageSize": 10}
		if len(fields) > 2 {
			payload["cursor"] = fields[2]
		}
		return "load_older", payload
	default:
		color.Yellow.Println("unknown command:", fields[0])
		return "", nil
	}
}

func writeEvent(conn *websocket.Conn, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Event: event, Payload: raw})
}

func fetchToken(server, name string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/token?name=%s", server, url.QueryEscape(name)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Token, nil
}

func flagOr(envName, fallback string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return fallback
}

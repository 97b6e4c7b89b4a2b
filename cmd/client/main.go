package main

import (
	"bufio"
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

// Interactive terminal client for poking a running relay. One command
// per line; anything starting with '{' is sent as a raw envelope.
type Config struct {
	RelayURL string `envconfig:"RELAY_URL" default:"ws://localhost:8080/ws"`
	// CLIENT_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"CLIENT_COLOURS" default:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	color.Enable = cfg.Colours

	conn, _, err := websocket.DefaultDialer.Dial(cfg.RelayURL, nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	color.Green.Printf("Connected to %s\n", cfg.RelayURL)

	go readLoop(conn)

	scanner := bufio.NewScanner(os.Stdin)
	printHelp()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		envelope, err := toEnvelope(line)
		if err != nil {
			color.Red.Println(err)
			continue
		}
		if err := conn.WriteJSON(envelope); err != nil {
			log.Fatalf("Write failed: %v", err)
		}
	}
}

func readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			color.Red.Printf("Connection closed: %v\n", err)
			os.Exit(0)
		}

		var res domain.Response
		if err := json.Unmarshal(payload, &res); err != nil {
			fmt.Println(string(payload))
			continue
		}
		render(res, payload)
	}
}

func render(res domain.Response, raw []byte) {
	at := time.UnixMilli(res.Timestamp).Format("15:04:05")

	switch {
	case res.Status == domain.StatusError:
		color.Red.Printf("[%s] %s: %s\n", at, res.Type, res.Message)
	case res.Type == "message":
		color.Cyan.Printf("[%s] %s\n", at, compactData(raw))
	case res.Type == "presence":
		color.Yellow.Printf("[%s] %s\n", at, compactData(raw))
	case res.Type == "typing":
		color.Gray.Printf("[%s] %s\n", at, compactData(raw))
	default:
		color.Green.Printf("[%s] %s: %s\n", at, res.Type, compactData(raw))
	}
}

// compactData extracts the data field of the raw response so rendered
// lines stay on one line.
func compactData(raw []byte) string {
	var res struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || len(res.Data) == 0 {
		return string(raw)
	}
	return string(res.Data)
}

func toEnvelope(line string) (domain.Envelope, error) {
	if strings.HasPrefix(line, "{") {
		var envelope domain.Envelope
		if err := json.Unmarshal([]byte(line), &envelope); err != nil {
			return domain.Envelope{}, fmt.Errorf("invalid raw envelope: %w", err)
		}
		return envelope, nil
	}

	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	build := func(eventType string, data any) (domain.Envelope, error) {
		payload, err := json.Marshal(data)
		if err != nil {
			return domain.Envelope{}, err
		}
		return domain.Envelope{Type: eventType, Data: payload}, nil
	}

	switch command {
	case "/register":
		if len(args) < 2 {
			return domain.Envelope{}, fmt.Errorf("usage: /register <username> <password>")
		}
		return build("register", map[string]string{"username": args[0], "password": args[1]})
	case "/login":
		if len(args) < 2 {
			return domain.Envelope{}, fmt.Errorf("usage: /login <handle> <password>")
		}
		return build("login", map[string]string{"handle": args[0], "password": args[1]})
	case "/create":
		if len(args) < 1 {
			return domain.Envelope{}, fmt.Errorf("usage: /create <name>")
		}
		return build("create_group", map[string]string{"name": strings.Join(args, " ")})
	case "/join":
		if len(args) < 1 {
			return domain.Envelope{}, fmt.Errorf("usage: /join <code>")
		}
		return build("join_group", map[string]string{"join_code": args[0]})
	case "/chats":
		return build("get_chats", map[string]string{})
	case "/msg":
		if len(args) < 2 {
			return domain.Envelope{}, fmt.Errorf("usage: /msg <to> <text>")
		}
		return build("message", map[string]string{"to": args[0], "content": strings.Join(args[1:], " ")})
	case "/history":
		if len(args) < 1 {
			return domain.Envelope{}, fmt.Errorf("usage: /history <chat_id>")
		}
		return build("get_chat_history", map[string]string{"chat_id": args[0]})
	case "/search":
		if len(args) < 1 {
			return domain.Envelope{}, fmt.Errorf("usage: /search <query>")
		}
		return build("search_user", map[string]string{"query": args[0]})
	case "/voice":
		if len(args) < 1 {
			return domain.Envelope{}, fmt.Errorf("usage: /voice <channel_id>")
		}
		return build("join_voice", map[string]string{"channel_id": args[0]})
	case "/health":
		return build("health_check", map[string]string{})
	default:
		return domain.Envelope{}, fmt.Errorf("unknown command %q, try /msg or raw JSON", command)
	}
}

func printHelp() {
	color.Gray.Println("Commands: /register /login /create /join /chats /msg /history /search /voice /health /quit, or raw JSON")
}

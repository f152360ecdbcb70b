// Command scrumchat is an interactive chat client for the scrummaster
// WebSocket endpoint.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/AbhigyanVE/ScrumMaster/internal/render"
	"github.com/AbhigyanVE/ScrumMaster/internal/transport/ws"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket server address")
	session := flag.String("session", "", "Session id to resume (empty mints a new one)")
	width := flag.Int("width", 100, "Render width")
	flag.Parse()

	log.SetFlags(log.Ltime)

	client, err := Dial(*addr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.Hello(*session); err != nil {
		log.Fatalf("Hello failed: %v", err)
	}

	fmt.Println(infoStyle.Render("Session " + client.SessionID()))
	fmt.Println(infoStyle.Render("Ask a question and press Enter. /reset clears context, /quit exits."))

	go printFrames(client, *width)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print(promptStyle.Render("> "))
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			input := strings.TrimSpace(line)
			switch input {
			case "":
				continue
			case "/quit":
				fmt.Println("Bye!")
				return
			case "/reset":
				if err := client.Reset(); err != nil {
					log.Printf("Send error: %v", err)
				}
				continue
			}
			if _, err := client.Ask(input); err != nil {
				log.Printf("Send error: %v", err)
			}
		}
	}
}

func printFrames(client *Client, width int) {
	for {
		f, err := client.Next()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			return
		}
		fmt.Print("\r")
		switch f.Type {
		case ws.TypeResponse:
			fmt.Print(render.Terminal(f.Response.Response, width))
		case ws.TypeError:
			fmt.Println(errStyle.Render(f.Err.Code + ": " + f.Err.Message))
		case ws.TypeResetAck:
			fmt.Println(infoStyle.Render("context cleared"))
		}
		fmt.Print(promptStyle.Render("> "))
	}
}

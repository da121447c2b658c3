// acuity-cli: take a visual-acuity test in the terminal
// Connects to an acuity server as a kiosk and renders each optotype as
// text. Answer with u, d, l or r.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-acuity/internal/httpc"
	"github.com/teslashibe/go-acuity/pkg/protocol"
)

var (
	server  = flag.String("server", "http://localhost:8080", "Acuity server URL")
	kioskID = flag.String("kiosk", "", "Kiosk ID (random if empty)")
)

type stepsResponse struct {
	Ideal struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"ideal"`
}

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var steps stepsResponse
	reqCtx, reqCancel := context.WithTimeout(ctx, 5*time.Second)
	err := httpc.GetJSON(reqCtx, strings.TrimRight(*server, "/")+"/api/steps", &steps)
	reqCancel()
	if err != nil {
		log.Fatalf("❌ Server not reachable: %v", err)
	}

	wsURL, err := kioskURL(*server, *kioskID)
	if err != nil {
		log.Fatalf("❌ Bad server URL: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("❌ Connect failed: %v", err)
	}
	defer conn.Close()
	k := kiosk{conn: conn}

	fmt.Println()
	fmt.Println("👁  Acuity screening")
	fmt.Printf("   Sit %.0f-%.0f cm from the screen. Cover your LEFT eye first.\n", steps.Ideal.Min*100, steps.Ideal.Max*100)
	fmt.Println("   Answer which way the gap faces: u(p), d(own), l(eft), r(ight). q quits.")
	fmt.Println()

	incoming := make(chan *protocol.Message, 16)
	go readLoop(conn, incoming)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := k.send(protocol.NewStartMessage(false)); err != nil {
		log.Fatalf("❌ %v", err)
	}

	input := bufio.NewScanner(os.Stdin)
	for msg := range incoming {
		switch msg.Type {
		case protocol.TypeTrial:
			trial, err := msg.GetTrialData()
			if err != nil {
				continue
			}
			if trial.StepIndex == 0 && trial.Eye == "left" {
				fmt.Println("\n   Now cover your RIGHT eye.")
			}
			fmt.Println(render(trial.Direction, trial.StepIndex))
			fmt.Printf("[%s eye, %s] > ", trial.Eye, trial.Acuity)

			dir, ok := prompt(input)
			if !ok {
				return
			}
			if err := k.send(protocol.NewAnswerMessage(dir)); err != nil {
				log.Fatalf("❌ %v", err)
			}

		case protocol.TypeEyeResult:
			res, err := msg.GetEyeResultData()
			if err == nil {
				fmt.Printf("\n✅ %s eye: %s (logMAR %.1f)\n", res.Eye, res.Acuity, res.LogMAR)
			}

		case protocol.TypeSummary:
			sum, err := msg.GetSummaryData()
			if err != nil {
				continue
			}
			printSummary(sum)

			fmt.Print("Retry? [y/N] > ")
			if !input.Scan() || !strings.EqualFold(strings.TrimSpace(input.Text()), "y") {
				return
			}
			if err := k.send(protocol.NewStartMessage(false)); err != nil {
				log.Fatalf("❌ %v", err)
			}

		case protocol.TypeError:
			if e, err := msg.GetErrorData(); err == nil {
				fmt.Printf("⚠️  %s: %s\n", e.Code, e.Message)
			}
		}
	}
}

func readLoop(conn *websocket.Conn, out chan<- *protocol.Message) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			continue
		}
		out <- msg
	}
}

type kiosk struct {
	conn *websocket.Conn
}

// send takes a constructor's results directly.
func (k kiosk) send(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	return k.conn.WriteMessage(websocket.TextMessage, data)
}

// prompt reads until a valid direction is entered. ok is false on quit
// or end of input.
func prompt(input *bufio.Scanner) (dir string, ok bool) {
	for input.Scan() {
		line := strings.TrimSpace(input.Text())
		if line == "q" || line == "quit" {
			return "", false
		}
		if d, valid := parseAnswer(line); valid {
			return d, true
		}
		fmt.Print("u, d, l or r > ")
	}
	return "", false
}

// kioskURL turns an http(s) server URL into the kiosk websocket URL.
func kioskURL(server, id string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/kiosk"
	if id != "" {
		u.Path += "/" + id
	}
	return u.String(), nil
}

func printSummary(s *protocol.SummaryData) {
	fmt.Println()
	fmt.Println("📋 " + s.Text)
	fmt.Println()
	fmt.Printf("   %-6s %-7s %-7s %-10s %s\n", "Eye", "Acuity", "logMAR", "Severity", "Condition")
	for _, e := range s.Eyes {
		fmt.Printf("   %-6s %-7s %-7.1f %-10s %s\n", e.Eye, e.Acuity, e.LogMAR, e.Severity, e.Condition)
	}
	fmt.Printf("\n   Tested %s at %.1f m\n\n", s.When.Local().Format("2006-01-02 15:04"), testDistance(s))
}

func testDistance(s *protocol.SummaryData) float64 {
	if len(s.Eyes) == 0 {
		return 0
	}
	return s.Eyes[0].TestDistanceM
}

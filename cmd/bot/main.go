package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"wayfarer.game/internal/protocol"
	"wayfarer.game/internal/sim/scenario"
)

// bot plays a scenario script against a running server over the websocket.
func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "", "player name (default: the script's player)")
		scriptPath = flag.String("script", "./scripts/first_week.yaml", "scenario script")
		delay      = flag.Duration("delay", 0, "pause between actions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	sc, err := scenario.Load(*scriptPath)
	if err != nil {
		logger.Fatalf("load script: %v", err)
	}
	player := *name
	if player == "" {
		player = sc.Player
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      player,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := readTyped(conn, protocol.TypeWelcome, &welcome); err != nil {
		logger.Fatalf("WELCOME: %v", err)
	}
	logger.Printf("WELCOME session_id=%s", welcome.SessionID)

	denied := 0
	for i, st := range sc.Steps {
		act := st.Act(fmt.Sprintf("step_%d", i))
		if err := conn.WriteJSON(act); err != nil {
			logger.Fatalf("send ACT: %v", err)
		}
		var res protocol.ActionResultMsg
		if err := readTyped(conn, protocol.TypeActionResult, &res); err != nil {
			logger.Fatalf("ACTION_RESULT: %v", err)
		}
		var state protocol.StateMsg
		if err := readTyped(conn, protocol.TypeState, &state); err != nil {
			logger.Fatalf("STATE: %v", err)
		}
		if !res.OK {
			denied++
		}
		logger.Printf("%s %s ok=%v code=%s %s completed=%v failed=%v", res.Ref, act.Action, res.OK, res.Code, res.Message, res.Completed, res.Failed)
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}
	logger.Printf("done: %d actions, %d denied", len(sc.Steps), denied)
}

func readTyped(conn *websocket.Conn, typ string, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return err
	}
	if base.Type != typ {
		return fmt.Errorf("expected %s, got %s: %s", typ, base.Type, msg)
	}
	return json.Unmarshal(msg, v)
}

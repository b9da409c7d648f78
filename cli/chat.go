package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/studyclub/internal/protocol"
)

// ChatClient is a WebSocket chat connection bound to one session.
type ChatClient struct {
	conn      *websocket.Conn
	sessionID string
	done      chan struct{}
}

// DialChat connects to the WebSocket endpoint of the service at server.
func DialChat(server string) (*ChatClient, error) {
	addr, err := wsURL(server)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &ChatClient{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// wsURL maps an http(s) base URL to the ws(s) endpoint.
func wsURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Close closes the client connection.
func (c *ChatClient) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendHello binds the connection to sessionID, or to a new session when it
// is empty, and waits for hello_ack.
func (c *ChatClient) SendHello(sessionID string) error {
	msg := protocol.HelloMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
	}

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}

	if base.Type == protocol.TypeError {
		var errMsg protocol.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}

	if base.Type != protocol.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

// SendChat sends a chat message.
func (c *ChatClient) SendChat(text string) error {
	msg := protocol.ChatMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeChat,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
		},
		Text: text,
	}
	return c.conn.WriteJSON(msg)
}

// ReadMessages prints replies and errors until the connection closes.
func (c *ChatClient) ReadMessages(w io.Writer) {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					fmt.Fprintf(w, "read error: %v\n", err)
				}
				return
			}
			printEvent(w, data)
		}
	}
}

func printEvent(w io.Writer, data []byte) {
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		fmt.Fprintf(w, "unmarshal error: %v\n", err)
		return
	}

	switch base.Type {
	case protocol.TypeReply:
		var msg protocol.ReplyMessage
		if err := json.Unmarshal(data, &msg); err == nil {
			fmt.Fprintf(w, "\nassistant: %s\n> ", msg.Reply)
		}
	case protocol.TypeError:
		var msg protocol.ErrorMessage
		if err := json.Unmarshal(data, &msg); err == nil {
			fmt.Fprintf(w, "\n[%s] %s\n> ", msg.Code, msg.Message)
		}
	case protocol.TypeSessionDeleted:
		fmt.Fprintf(w, "\nsession %s was deleted\n", base.SessionID)
	}
}

func chatCmd(server *string) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the study assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client, err := DialChat(*server)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.SendHello(sessionID); err != nil {
				return err
			}

			fmt.Fprintf(out, "Session: %s\n", client.sessionID)
			fmt.Fprintln(out, "Type a message and press Enter to send. /quit to exit.")

			go client.ReadMessages(out)

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			defer signal.Stop(interrupt)

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}()

			fmt.Fprint(out, "> ")
			for {
				select {
				case <-interrupt:
					fmt.Fprintln(out, "\nInterrupted")
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					input := strings.TrimSpace(line)
					if input == "" {
						fmt.Fprint(out, "> ")
						continue
					}
					if input == "/quit" {
						fmt.Fprintln(out, "Bye!")
						return nil
					}
					if err := client.SendChat(input); err != nil {
						return fmt.Errorf("send: %w", err)
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to join (empty creates a session)")
	return cmd
}

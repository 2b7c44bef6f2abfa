package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mgaspar301/txtpay/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := newClient(session.SocketPath(sessionName))

	switch args[0] {
	case "status":
		cmdStatus(c, *jsonFlag)
	case "notifications":
		cmdNotifications(c, *jsonFlag)
	case "dismiss":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: txtpayctl dismiss <key>")
			os.Exit(1)
		}
		cmdDismiss(c, args[1])
	case "foreground":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: txtpayctl foreground <key|none>")
			os.Exit(1)
		}
		cmdForeground(c, args[1])
	case "background":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: txtpayctl background <on|off>")
			os.Exit(1)
		}
		cmdBackground(c, args[1])
	case "conversations":
		cmdConversations(c, *jsonFlag)
	case "accept":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: txtpayctl accept <conversation-id>")
			os.Exit(1)
		}
		cmdAccept(c, args[1])
	case "send":
		cmdSend(c, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: txtpayctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                   Show daemon status")
	fmt.Fprintln(os.Stderr, "  notifications            List visible notifications")
	fmt.Fprintln(os.Stderr, "  dismiss <key>            Dismiss a notification")
	fmt.Fprintln(os.Stderr, "  foreground <key|none>    Mark a conversation as open (none clears)")
	fmt.Fprintln(os.Stderr, "  background <on|off>      Set app-backgrounded state")
	fmt.Fprintln(os.Stderr, "  conversations            List known conversations")
	fmt.Fprintln(os.Stderr, "  accept <id>              Accept a conversation")
	fmt.Fprintln(os.Stderr, "  send --sender <id> [--name <n>] [--kind <text|payment_request>] <body>")
	fmt.Fprintln(os.Stderr, "                           Inject a message (testing)")
}

// client talks to the session daemon over its Unix domain socket.
type client struct {
	http *http.Client
}

func newClient(socketPath string) *client {
	return &client{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
			Timeout: 10 * time.Second,
		},
	}
}

func (c *client) do(method, path string, body any) []byte {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, "http://txtpay"+path, reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", apiErr.Error)
		} else {
			fmt.Fprintf(os.Stderr, "error: daemon returned %d\n", resp.StatusCode)
		}
		os.Exit(1)
	}
	return data
}

func cmdStatus(c *client, jsonOut bool) {
	data := c.do(http.MethodGet, "/v1/status", nil)
	if jsonOut {
		outputRaw(data)
		return
	}
	var st struct {
		Session    string `json:"session"`
		State      string `json:"state"`
		UptimeMs   int64  `json:"uptime_ms"`
		Active     int    `json:"active"`
		Foreground string `json:"foreground"`
	}
	mustUnmarshal(data, &st)
	fmt.Printf("Session:    %s\n", st.Session)
	fmt.Printf("State:      %s\n", st.State)
	fmt.Printf("Uptime:     %dms\n", st.UptimeMs)
	fmt.Printf("Active:     %d notifications\n", st.Active)
	if st.Foreground != "" {
		fmt.Printf("Foreground: %s\n", st.Foreground)
	}
}

func cmdNotifications(c *client, jsonOut bool) {
	data := c.do(http.MethodGet, "/v1/notifications", nil)
	if jsonOut {
		outputRaw(data)
		return
	}
	var list struct {
		Notifications []struct {
			Key   string   `json:"key"`
			Title string   `json:"title"`
			Body  string   `json:"body"`
			Lines []string `json:"lines"`
		} `json:"notifications"`
	}
	mustUnmarshal(data, &list)
	if len(list.Notifications) == 0 {
		fmt.Println("No visible notifications.")
		return
	}
	for _, n := range list.Notifications {
		fmt.Printf("%s  %s: %s", n.Key, n.Title, n.Body)
		if len(n.Lines) > 1 {
			fmt.Printf("  (+%d more)", len(n.Lines)-1)
		}
		fmt.Println()
	}
}

func cmdDismiss(c *client, key string) {
	c.do(http.MethodPost, "/v1/notifications/"+key+"/dismiss", nil)
	fmt.Printf("Dismissed %s\n", key)
}

func cmdForeground(c *client, key string) {
	if key == "none" {
		key = ""
	}
	c.do(http.MethodPut, "/v1/foreground", map[string]string{"key": key})
	if key == "" {
		fmt.Println("Foreground cleared.")
	} else {
		fmt.Printf("Foreground set to %s\n", key)
	}
}

func cmdBackground(c *client, state string) {
	var backgrounded bool
	switch state {
	case "on":
		backgrounded = true
	case "off":
		backgrounded = false
	default:
		fmt.Fprintln(os.Stderr, "usage: txtpayctl background <on|off>")
		os.Exit(1)
	}
	c.do(http.MethodPut, "/v1/background", map[string]bool{"backgrounded": backgrounded})
	fmt.Printf("Backgrounded: %v\n", backgrounded)
}

func cmdConversations(c *client, jsonOut bool) {
	data := c.do(http.MethodGet, "/v1/conversations", nil)
	if jsonOut {
		outputRaw(data)
		return
	}
	var list struct {
		Conversations []struct {
			ID          string `json:"ID"`
			RecipientID string `json:"RecipientID"`
			Name        string `json:"Name"`
			Accepted    bool   `json:"Accepted"`
		} `json:"conversations"`
	}
	mustUnmarshal(data, &list)
	if len(list.Conversations) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, conv := range list.Conversations {
		state := "pending"
		if conv.Accepted {
			state = "accepted"
		}
		name := conv.Name
		if name == "" {
			name = conv.RecipientID
		}
		fmt.Printf("%s  %s  [%s]\n", conv.ID, name, state)
	}
}

func cmdAccept(c *client, id string) {
	c.do(http.MethodPost, "/v1/conversations/"+id+"/accept", nil)
	fmt.Printf("Accepted %s\n", id)
}

func cmdSend(c *client, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	sender := fs.String("sender", "", "sender identifier")
	name := fs.String("name", "", "sender display name")
	kind := fs.String("kind", "text", "message kind (text or payment_request)")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: txtpayctl send --sender <id> [--name <n>] [--kind <k>] <body>")
		os.Exit(1)
	}
	body := strings.Join(fs.Args(), " ")

	data := c.do(http.MethodPost, "/v1/messages", map[string]string{
		"sender":      *sender,
		"sender_name": *name,
		"kind":        *kind,
		"body":        body,
	})
	var resp struct {
		ID string `json:"id"`
	}
	mustUnmarshal(data, &resp)
	fmt.Printf("Sent %s\n", resp.ID)
}

func mustUnmarshal(data []byte, v any) {
	if err := json.Unmarshal(data, v); err != nil {
		fmt.Fprintf(os.Stderr, "error: bad response from daemon: %v\n", err)
		os.Exit(1)
	}
}

func outputRaw(data []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		os.Stdout.Write(data)
		return
	}
	fmt.Println(buf.String())
}

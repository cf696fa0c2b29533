package main

import (
	"bufio"
	"chat-sync/client"
	"chat-sync/domain"
	"chat-sync/domain/event"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL    string        `envconfig:"CHAT_SERVER_URL" default:"http://localhost:8080"`
	Token        string        `envconfig:"CHAT_TOKEN" required:"true"`
	Room         string        `envconfig:"CHAT_ROOM"`
	HistoryLimit int           `envconfig:"CHAT_HISTORY_LIMIT" default:"20"`
	MaxBackoff   time.Duration `envconfig:"CHAT_MAX_BACKOFF" default:"10s"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"WARN"`
	Colours      bool          `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	color.Enable = config.Colours
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(log, client.Config{
		ServerURL:    config.ServerURL,
		Token:        config.Token,
		HistoryLimit: config.HistoryLimit,
		MaxBackoff:   config.MaxBackoff,
	})
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	go printEvents(ctx, c.Events())

	shell := &shell{client: c, out: os.Stdout}
	boot := make(chan string, 1)
	if config.Room != "" {
		go func() {
			for !c.Connected() && ctx.Err() == nil {
				time.Sleep(50 * time.Millisecond)
			}
			boot <- "/join " + config.Room
		}()
	}
	color.Cyan.Printf(">>> Connecting to %s (/help for commands, Ctrl+C to quit)\n", config.ServerURL)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return exitOK, nil
		case err := <-done:
			if err != nil {
				return exitRuntime, err
			}
			return exitOK, nil
		case line := <-boot:
			shell.exec(ctx, line)
		case line, ok := <-lines:
			if !ok {
				stop()
				return exitOK, nil
			}
			shell.exec(ctx, line)
		}
	}
}

type shell struct {
	client *client.Client
	out    io.Writer
	room   domain.RoomID
}

func (s *shell) exec(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if !strings.HasPrefix(line, "/") {
		s.report(s.client.Send(s.room, line))
		return
	}
	command, args, _ := strings.Cut(line[1:], " ")
	first, rest, _ := strings.Cut(args, " ")
	switch command {
	case "join":
		s.room = domain.RoomID(first)
		_, err := s.client.Join(ctx, s.room)
		s.report("", err)
		s.printTimeline()
	case "leave":
		s.report(s.client.Leave(domain.RoomID(first)))
	case "room":
		s.room = domain.RoomID(first)
		s.printTimeline()
	case "edit":
		s.report(s.client.Edit(domain.MessageID(first), rest))
	case "delete":
		s.report(s.client.Delete(domain.MessageID(first)))
	case "react":
		s.report(s.client.React(domain.MessageID(first), rest))
	case "unreact":
		s.report(s.client.Unreact(domain.MessageID(first)))
	case "reply":
		s.report(s.client.Reply(s.room, domain.MessageID(first), rest))
	case "typing":
		s.report(s.client.Typing(s.room, first != "off"))
	case "history":
		s.printTimeline()
	case "who":
		s.printWho()
	default:
		fmt.Fprintln(s.out, "/join <room> /leave <room> /room <room> /history /who /typing [off]")
		fmt.Fprintln(s.out, "/edit <id> <text> /delete <id> /react <id> <emoji> /unreact <id> /reply <id> <text>")
	}
}

func (s *shell) report(_ string, err error) {
	if err != nil {
		color.Red.Printf("!! %v\n", err)
	}
}

func (s *shell) printTimeline() {
	for _, msg := range s.client.State().Timeline(s.room) {
		fmt.Fprintln(s.out, formatMessage(msg))
	}
}

func (s *shell) printWho() {
	state := s.client.State()
	online := state.Online()
	table := tablewriter.NewWriter(s.out)
	table.SetHeader([]string{"Identity", "Status", "Typing here"})
	table.SetBorder(false)
	typing := map[domain.IdentityID]bool{}
	for _, identity := range state.Typing(s.room) {
		typing[identity] = true
	}
	for _, identity := range online {
		table.Append([]string{string(identity), "online", fmt.Sprint(typing[identity])})
	}
	table.Render()
}

func printEvents(ctx context.Context, events <-chan event.ServerEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			switch evt := e.(type) {
			case event.MessageCreated:
				fmt.Println(formatMessage(evt.Message))
			case event.MessageEdited:
				color.Yellow.Printf("~ %s\n", formatMessage(evt.Message))
			case event.MessageDeleted:
				color.Gray.Printf("x %s deleted\n", evt.Message.ID)
			case event.ReactionChanged:
				color.Magenta.Printf("%s: %d reactions\n", evt.MessageID, len(evt.Reactions))
			case event.PresenceOnline:
				color.Green.Printf("* %s is online\n", evt.Identity)
			case event.PresenceOffline:
				color.Gray.Printf("* %s went offline at %s\n", evt.Identity, evt.LastSeenAt.Local().Format(time.Kitchen))
			case event.TypingStarted:
				color.Gray.Printf("… %s is typing in %s\n", evt.Identity, evt.RoomID)
			case event.MemberJoined:
				color.Green.Printf("+ %s joined %s\n", evt.Identity, evt.RoomID)
			case event.MemberLeft:
				color.Gray.Printf("- %s left %s\n", evt.Identity, evt.RoomID)
			case event.Error:
				color.Red.Printf("!! %s: %s\n", evt.Code, evt.Message)
			}
		}
	}
}

func formatMessage(msg domain.Message) string {
	prefix := color.Cyan.Sprintf("[%s] %s", msg.CreatedAt.Local().Format(time.Kitchen), msg.SenderID)
	suffix := ""
	if msg.Edited.IsEdited {
		suffix = " (edited)"
	}
	return fmt.Sprintf("%s %s%s  #%s", prefix, msg.Content, suffix, msg.ID)
}

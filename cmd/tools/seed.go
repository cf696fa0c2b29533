package main

import (
	"chat-sync/auth"
	"chat-sync/domain"
	"chat-sync/internal"
	"chat-sync/repositories"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// seed creates conversations and prints a token per participant, e.g.
//
//	go run ./cmd/tools -chat general=alice,bob,clara -chat dm=alice,bob
func main() {
	var chats chatFlags
	flag.Var(&chats, "chat", "room=identity,identity (repeatable)")
	flag.Parse()

	config, err := internal.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	ctx := context.Background()
	repository := repositories.NewChatRepository(db)
	now := time.Now().UTC()
	for _, chat := range chats {
		chat.CreatedAt, chat.LastActivity = now, now
		if err := repository.CreateChat(ctx, chat); err != nil {
			log.Fatalf("Failed to create %s: %v", chat.ID, err)
		}
	}

	verifier := auth.NewJWTVerifier(config.JWTSecret)
	identities := lo.Uniq(lo.FlatMap(chats, func(c domain.Chat, _ int) []domain.IdentityID { return c.Participants }))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Identity", "Rooms", "Token"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, identity := range identities {
		token, err := verifier.GenerateToken(identity, []string{"user"}, config.AuthTokenDuration)
		if err != nil {
			log.Fatal(err)
		}
		rooms := lo.FilterMap(chats, func(c domain.Chat, _ int) (string, bool) {
			return string(c.ID), c.HasParticipant(identity)
		})
		table.Append([]string{string(identity), strings.Join(rooms, ","), token})
	}
	table.Render()
	logs.GetLoggerFromString(config.LogLevel).Info("Seed done", "chats", len(chats), "identities", len(identities))
}

type chatFlags []domain.Chat

func (c *chatFlags) String() string {
	return fmt.Sprint(len(*c), " chats")
}

func (c *chatFlags) Set(value string) error {
	id, members, ok := strings.Cut(value, "=")
	if !ok || id == "" || members == "" {
		return fmt.Errorf("expected room=identity,identity, got %q", value)
	}
	participants := lo.Map(strings.Split(members, ","), func(s string, _ int) domain.IdentityID {
		return domain.IdentityID(strings.TrimSpace(s))
	})
	chatType := domain.GROUP
	if len(participants) == 2 {
		chatType = domain.PRIVATE
	}
	*c = append(*c, domain.Chat{ID: domain.RoomID(id), Name: id, Type: chatType, Participants: participants})
	return nil
}

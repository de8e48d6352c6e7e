package seerbot_test

import (
	"context"
	"fmt"
	"log"

	"github.com/bbkanego/seerbot"
	"github.com/bbkanego/seerbot/internal/adapters/memory"
	"github.com/bbkanego/seerbot/internal/nlp"
	"github.com/bbkanego/seerbot/pkg/domain"
)

func Example() {
	ctx := context.Background()

	catalog := memory.NewCatalog()
	_ = catalog.SaveLaunchInfo(ctx, domain.LaunchInfo{
		BotID:        "bot-1",
		OwnerID:      "owner-1",
		ModelRef:     "restaurant.yaml",
		TokenizerRef: "simple",
	})

	bot, err := seerbot.New(
		seerbot.WithCatalog(catalog, catalog),
		seerbot.WithModelSource(nlp.StaticSource{"restaurant.yaml": []byte(
			"categories:\n  - name: Hours\n    samples: [when are you open]\n")}),
	)
	if err != nil {
		log.Fatal(err)
	}

	reply, err := bot.HandleInboundMessage(ctx, "session-1", "bot-1", "Initiate", "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.ResponseText)
	// Output: {"type":"options","message":"Hello! How can I help you today?","options":[{"option":"Opening hours","type":"button","clickResponse":"when are you open"},{"option":"Book a table","type":"button","clickResponse":"I want to book a table"}]}
}

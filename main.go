package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vnbot/pkg/bot"
	"vnbot/pkg/config"
	"vnbot/pkg/lookup"
	"vnbot/pkg/vndb"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
)

func main() {
	// Load config.yml
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load .env for secrets
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		log.Fatal("Missing required environment variable: DISCORD_TOKEN")
	}

	// The VNDB credential is read once and handed to the dialer; it is
	// never logged.
	vndbToken, err := os.ReadFile(cfg.VNDB.TokenFile)
	if err != nil {
		log.Fatalf("Failed to read VNDB token file: %v", err)
	}

	// Load the tag/trait dictionaries into memory
	tags, err := lookup.Load(cfg.Data.Tags)
	if err != nil {
		log.Fatalf("Failed to load tag dump: %v", err)
	}
	traits, err := lookup.Load(cfg.Data.Traits)
	if err != nil {
		log.Fatalf("Failed to load trait dump: %v", err)
	}
	log.Printf("Loaded %d tags and %d traits", tags.Len(), traits.Len())

	dialer := &vndb.Dialer{
		Host:    cfg.VNDB.Host,
		Port:    cfg.VNDB.Port,
		Token:   vndbToken,
		Timeout: time.Duration(cfg.VNDB.TimeoutSeconds * float64(time.Second)),
	}

	handler := bot.NewHandler(
		&bot.DialerConnector{Dialer: dialer},
		tags,
		traits,
		cfg.Bot.Prefix,
		time.Duration(cfg.Bot.PromptTimeoutSeconds*float64(time.Second)),
		time.Duration(cfg.VNDB.TimeoutSeconds*float64(time.Second)),
	)

	// Create Discord Session
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("Error creating Discord session: %v", err)
	}
	dg.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	// Register Handlers
	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)

	// Open Connection
	if err := dg.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	// Set Bot ID in handler (so it can ignore itself)
	handler.SetBotID(dg.State.User.ID)

	// Register slash commands (empty string = global, or specify guild ID for faster testing)
	guildID := os.Getenv("DISCORD_GUILD_ID")
	registeredCommands, err := bot.RegisterSlashCommands(dg, guildID)
	if err != nil {
		log.Fatalf("Error registering slash commands: %v", err)
	}
	defer func() {
		if err := bot.UnregisterSlashCommands(dg, guildID, registeredCommands); err != nil {
			log.Printf("Error unregistering slash commands: %v", err)
		}
	}()

	// Set Custom Status
	err = dg.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name:  "Custom Status",
				Type:  discordgo.ActivityTypeCustom,
				State: "reading visual novels",
			},
		},
		Status: "online",
	})
	if err != nil {
		log.Printf("Error setting custom status: %v", err)
	}

	log.Println("vnbot is now running. Press CTRL-C to exit.")

	// Wait for signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	dg.Close()
}

// Package main provides the interactive console client for nova.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sosagent/nova/internal/catalog"
	"github.com/sosagent/nova/internal/config"
	"github.com/sosagent/nova/internal/dialogue"
	"github.com/sosagent/nova/pkg/models"
)

const (
	bannerWidth  = 80
	templateFile = "custom_dataset_template.json"
)

// consoleStyles is the lipgloss palette for the console. With -no-color
// every style is empty and Render passes text through unchanged.
type consoleStyles struct {
	banner  lipgloss.Style
	agent   lipgloss.Style
	heading lipgloss.Style
	err     lipgloss.Style
}

func newConsoleStyles(noColor bool) consoleStyles {
	if noColor {
		plain := lipgloss.NewStyle()
		return consoleStyles{banner: plain, agent: plain, heading: plain, err: plain}
	}
	return consoleStyles{
		banner:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		agent:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		heading: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

type console struct {
	engine *dialogue.Engine
	sess   *models.Session
	styles consoleStyles
}

func main() {
	catalogPath := flag.String("catalog", "", "Custom catalog file to merge (JSON or YAML)")
	demo := flag.Bool("demo", false, "Run the scripted intelligence demo and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	noColor := flag.Bool("no-color", false, "Disable ANSI colors")
	flag.Parse()

	// The console shares stdout with the conversation, so logs go to
	// stderr and stay quiet unless asked for.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: *noColor})

	cfg := config.Get()
	st := newConsoleStyles(*noColor)

	cat := catalog.Default()
	if *catalogPath != "" {
		cat = mergeCustomCatalog(cat, *catalogPath, st)
	}

	c := &console{
		engine: dialogue.NewEngine(cat, cfg.AgentName, cfg.MissionStatus),
		sess:   models.NewSession(),
		styles: st,
	}

	if *demo {
		c.runDemo()
		c.printTrailer()
		return
	}

	go c.watchInterrupt()

	c.printBanner(cat.Len())
	c.chat()
	c.printTrailer()
}

// mergeCustomCatalog loads one custom file on top of the built-in set.
// Load problems leave the built-in catalog in place.
func mergeCustomCatalog(cat *catalog.Catalog, path string, st consoleStyles) *catalog.Catalog {
	extra, issues, err := catalog.Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Println(st.err.Render(fmt.Sprintf("❌ Error: File '%s' not found", path)))
		return cat
	case err != nil:
		fmt.Println(st.err.Render(fmt.Sprintf("❌ Error: %v", err)))
		return cat
	}

	for _, issue := range issues {
		fmt.Println(st.err.Render("⚠️ Skipped " + issue.Error()))
	}
	fmt.Printf("✅ Loaded %d custom entries\n", extra.Len())
	return catalog.Merge(cat, extra)
}

func (c *console) agentLabel() string {
	return c.styles.agent.Render(c.engine.AgentName())
}

func (c *console) divider() string {
	return c.styles.banner.Render(strings.Repeat("=", bannerWidth))
}

func (c *console) printBanner(entries int) {
	agent := c.agentLabel()
	title := c.styles.banner.Width(bannerWidth).Align(lipgloss.Center).
		Render("🚀 SOS: SPACE AGENT - INTELLIGENT MISSION SUPPORT 🚀")

	fmt.Println(c.divider())
	fmt.Println(title)
	fmt.Println(c.divider())
	fmt.Printf("\n%s: AI systems online...\n", agent)
	fmt.Printf("%s: %d emergency protocols loaded\n", agent, entries)
	fmt.Printf("%s: Multi-layer intelligence active 🧠\n", agent)
	fmt.Printf("%s: Mission Control link established 🛰️\n\n", agent)
	fmt.Println(c.divider())

	fmt.Println()
	fmt.Println(c.styles.heading.Render("💡 INTELLIGENCE FEATURES:"))
	fmt.Println("   ✓ Understands natural language (not just exact keywords)")
	fmt.Println("   ✓ Detects emergencies automatically")
	fmt.Println("   ✓ Asks clarifying questions when needed")
	fmt.Println("   ✓ Remembers conversation context")
	fmt.Println("   ✓ Fuzzy keyword matching")

	fmt.Println()
	fmt.Println(c.styles.heading.Render("📝 COMMANDS:"))
	fmt.Println("   • 'export' - Save conversation")
	fmt.Println("   • 'template' - Get dataset format")
	fmt.Println("   • 'quit' - Exit")

	fmt.Println()
	fmt.Println(c.styles.heading.Render("💬 TRY SAYING:"))
	fmt.Println(`   • "Emergency! We're losing air!"`)
	fmt.Println(`   • "Something's burning"`)
	fmt.Println(`   • "I can't reach Earth"`)
	fmt.Println(`   • "Tell me about Mars"`)
	fmt.Println(`   • "I'm feeling anxious"`)

	fmt.Println()
	fmt.Println(c.divider())
	fmt.Println()
}

func (c *console) prompt() string {
	name := c.sess.UserName
	if name == "" {
		name = "[You]"
	}
	return fmt.Sprintf("Agent %s: ", name)
}

// chat runs the interactive loop until quit, exit, or EOF.
func (c *console) chat() {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(c.prompt())
		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "export":
			c.exportConversation()
			continue
		case "template":
			c.saveTemplate()
			continue
		case "quit", "exit":
			fmt.Printf("\n%s: %s\n", c.agentLabel(), c.engine.Respond(c.sess, "bye"))
			return
		}

		reply := c.engine.Respond(c.sess, input)
		fmt.Printf("\n%s: %s\n\n", c.agentLabel(), reply)
	}
}

// exportConversation writes the session history to a timestamped file.
func (c *console) exportConversation() {
	filename := fmt.Sprintf("conversation_%s.json", time.Now().Format("20060102_150405"))

	f, err := os.Create(filename)
	if err != nil {
		fmt.Println(c.styles.err.Render(fmt.Sprintf("❌ Error: %v", err)))
		return
	}
	defer f.Close()

	if err := c.sess.WriteTranscript(f); err != nil {
		fmt.Println(c.styles.err.Render(fmt.Sprintf("❌ Error: %v", err)))
		return
	}
	fmt.Printf("✅ Conversation saved to %s\n", filename)
}

// saveTemplate writes the catalog authoring template beside the binary.
func (c *console) saveTemplate() {
	if err := catalog.SaveTemplate(templateFile); err != nil {
		fmt.Println(c.styles.err.Render(fmt.Sprintf("❌ Error: %v", err)))
		return
	}
	fmt.Printf("✅ Template saved to %s\n", templateFile)
	fmt.Println("\n📝 Format:")
	fmt.Println("• keywords: List of words users might say")
	fmt.Println("• response: Your detailed protocol/info")
	fmt.Println("• severity: CRITICAL/HIGH/MEDIUM/LOW/INFO")
	fmt.Println("• category: For organization")
	fmt.Println("• questions: Optional follow-up questions")
}

// runDemo replays the scripted messages against a fresh session.
func (c *console) runDemo() {
	fmt.Println("\n🧪 INTELLIGENCE DEMO - See how the bot understands natural language")

	messages := []string{
		"Hi, I'm Alex",
		"Emergency! We're losing oxygen fast!",
		"Help! Something is on fire!",
		"I can't reach mission control",
		"Tell me about the red planet",
		"I'm feeling really stressed out",
		"What if there's a hole in the ship?",
		"The batteries are dying",
	}

	for i, message := range messages {
		fmt.Printf("\n%s\n", c.divider())
		fmt.Printf("TEST %d: %s\n", i+1, message)
		fmt.Println(c.divider())

		reply := c.engine.Respond(c.sess, message)
		fmt.Printf("\n%s: %s...\n", c.agentLabel(), truncateRunes(reply, 500))
	}
}

func (c *console) printTrailer() {
	fmt.Printf("\n%s\n", c.divider())
	fmt.Println("Mission Control disconnected. Safe travels! 🌟")
	fmt.Printf("%s\n\n", c.divider())
}

// watchInterrupt turns Ctrl-C into the emergency disconnect sign-off.
func (c *console) watchInterrupt() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Printf("\n\n%s: ⚠️ Emergency disconnect detected!\n", c.agentLabel())
	fmt.Printf("%s: Stay safe, agent! Mission Control standing by 🚀\n\n", c.agentLabel())
	c.printTrailer()
	os.Exit(0)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

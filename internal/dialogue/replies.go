package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/sosagent/nova/pkg/models"
)

// Fixed reply texts. These are the canned halves of the conversation;
// anything protocol-specific comes from the catalog instead.
const (
	thanksText = "You're welcome, agent! Always here to help. What else do you need?"

	contextMenuText = `Could you provide more details? Or ask about:
• Different emergency
• System check
• Space information
• Psychological support`

	fallbackText = `🤔 I want to help but need more details.

I'm trained on:

🚨 EMERGENCIES:
• Oxygen/air problems
• Fire
• Hull breach/pressure loss
• Radiation exposure
• Medical injuries

⚙️ SYSTEMS:
• Power/electrical
• Communication
• Navigation
• Life support

🌌 INFORMATION:
• Planets & space facts
• Mission data

🧠 SUPPORT:
• Stress & anxiety help

What do you need help with?`

	generalEmergencyText = `🚨 EMERGENCY PROTOCOL ACTIVATED

I detect an emergency but need to know the type. Please specify:

1. 💨 OXYGEN/AIR - Leak, low O2, can't breathe
2. 🔥 FIRE - Flames, smoke, burning
3. 🕳️ HULL BREACH - Hole, depressurization, pressure loss
4. ☢️ RADIATION - Solar flare, high dosimeter reading
5. ⚡ POWER FAILURE - Electrical issues, battery dead
6. 📡 COMMUNICATION LOSS - Can't reach Earth
7. 🏥 MEDICAL - Injury, illness, unconscious crew
8. 🧭 NAVIGATION - Lost, off course
9. 🌬️ LIFE SUPPORT - CO2 high, temperature issues

Type the NUMBER or NAME of your emergency for immediate protocol!`
)

func introReply(agentName string) string {
	return fmt.Sprintf(`👋 Greetings, Space Agent! I'm %s, your AI mission support system.

I can help with:
🚨 Emergencies (oxygen, fire, hull breach, etc.)
⚙️ System diagnostics
🏥 Medical situations
📡 Communication issues
🧠 Psychological support

What's your call sign (name)?`, agentName)
}

func welcomeBackReply(userName string) string {
	return fmt.Sprintf("Welcome back, Agent %s! All systems ready. How can I assist?", userName)
}

func farewellReply(userName string) string {
	return fmt.Sprintf(`🛰️ Safe travels, Agent %s!

Mission Control standing by. We're here 24/7 when you need us.

Stay safe among the stars! 🌟`, userName)
}

func statusReply(at time.Time, protocolCount int, missionStatus string) string {
	return fmt.Sprintf(`📊 SYSTEM STATUS - %s UTC

✓ AI: ONLINE
✓ Knowledge Base: %d protocols
✓ Comms: NOMINAL
✓ Mission: %s

Ready to assist!`, at.Format("15:04:05"), protocolCount, missionStatus)
}

func nameReply(userName string) string {
	return fmt.Sprintf(`✅ Call sign registered: Agent %s

Excellent! I'm ready to assist you with any situation.

What do you need help with?`, userName)
}

func contextReply(topic string) string {
	return fmt.Sprintf("I'm still here to help with your %s situation.\n\n%s", topic, contextMenuText)
}

// emergencyHeader prefixes a direct protocol hit. The category keeps its
// underscores here; only clarification menus prettify it.
func emergencyHeader(category string) string {
	return fmt.Sprintf("⚠️ EMERGENCY DETECTED - %s\n\n", strings.ToUpper(category))
}

// displayCategory renders a category for numbered menus.
func displayCategory(category string) string {
	return strings.ReplaceAll(strings.ToUpper(category), "_", " ")
}

// clarifyMax caps how many options a clarification menu displays.
const clarifyMax = 5

func emergencyMenuReply(options []models.CatalogEntry) string {
	var b strings.Builder
	b.WriteString("🚨 EMERGENCY DETECTED! Please specify:\n\n")
	shown := options
	if len(shown) > clarifyMax {
		shown = shown[:clarifyMax]
	}
	for i, opt := range shown {
		fmt.Fprintf(&b, "%d. %s\n", i+1, displayCategory(opt.Category))
	}
	b.WriteString("\nWhich emergency are you experiencing? (Type number or name)")
	return b.String()
}

func queryMenuReply(options []models.CatalogEntry) string {
	var b strings.Builder
	b.WriteString("I found multiple topics that might help:\n\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, displayCategory(opt.Category))
	}
	b.WriteString("\nWhich one do you need? (Type number or name)")
	return b.String()
}

// entryWithQuestions renders an entry's response followed by up to three
// follow-up questions.
func entryWithQuestions(entry models.CatalogEntry) string {
	if len(entry.Questions) == 0 {
		return entry.Response
	}
	var b strings.Builder
	b.WriteString(entry.Response)
	b.WriteString("\n\n❓ To help further:\n")
	questions := entry.Questions
	if len(questions) > 3 {
		questions = questions[:3]
	}
	for _, q := range questions {
		b.WriteString("• ")
		b.WriteString(q)
		b.WriteString("\n")
	}
	return b.String()
}

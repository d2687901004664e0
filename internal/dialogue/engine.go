package dialogue

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sosagent/nova/internal/catalog"
	"github.com/sosagent/nova/internal/match"
	"github.com/sosagent/nova/pkg/models"
)

// Score thresholds, shared by the emergency and query layers.
const (
	// emergencyScoreMin is the score that lets an emergency message skip
	// clarification: an exact keyword hit or a containment hit reaches
	// it, a substring-only hit does not.
	emergencyScoreMin = 5

	// querySignalMin is the weakest score still treated as a lead.
	querySignalMin = 3

	// queryStrongMin marks a match good enough that several of them
	// force a clarification round.
	queryStrongMin = 8
)

// Engine answers one message at a time against a fixed catalog. It is
// immutable after construction and safe for concurrent use; per-session
// state lives entirely in the models.Session passed to Respond. Hot
// reload swaps in a freshly built Engine rather than mutating one.
type Engine struct {
	catalog       *catalog.Catalog
	index         *match.Index
	agentName     string
	missionStatus string
	now           func() time.Time
}

// NewEngine builds an engine and its keyword index over cat.
func NewEngine(cat *catalog.Catalog, agentName, missionStatus string) *Engine {
	return &Engine{
		catalog:       cat,
		index:         match.Build(cat),
		agentName:     agentName,
		missionStatus: missionStatus,
		now:           time.Now,
	}
}

// Catalog returns the catalog this engine answers from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// AgentName returns the name the engine introduces itself with.
func (e *Engine) AgentName() string {
	return e.agentName
}

// Respond records message in the session history, runs it through the
// dialogue layers, records the reply, and returns it.
func (e *Engine) Respond(sess *models.Session, message string) string {
	sess.AppendTurn(models.RoleUser, message, e.now())
	reply := e.dispatch(sess, message)
	sess.AppendTurn(models.RoleAssistant, reply, e.now())
	return reply
}

// dispatch walks the layers in priority order. The first layer that
// produces a reply wins; later layers never see the message.
func (e *Engine) dispatch(sess *models.Session, message string) string {
	lower := strings.ToLower(message)

	if reply, ok := e.resolveClarification(sess, message, lower); ok {
		return reply
	}

	switch {
	case greetingRE.MatchString(lower):
		if sess.UserName == "" {
			return introReply(e.agentName)
		}
		return welcomeBackReply(sess.UserName)
	case farewellRE.MatchString(lower):
		return farewellReply(sess.UserName)
	case statusRE.MatchString(lower) && !IsEmergency(lower):
		return statusReply(e.now().UTC(), e.catalog.Len(), e.missionStatus)
	case thanksRE.MatchString(lower):
		return thanksText
	}

	if sess.UserName == "" {
		if name, ok := captureName(lower); ok {
			sess.UserName = name
			log.Debug().Str("call_sign", name).Msg("call sign registered")
			return nameReply(name)
		}
	}

	if IsEmergency(lower) {
		return e.emergencyReply(sess, message, lower)
	}
	return e.queryReply(sess, message)
}

// resolveClarification consumes a pending clarification, matching the
// reply against option positions (as digits anywhere in the raw message)
// or category names. The first option to match wins. A reply matching
// nothing leaves the clarification pending and falls through to the
// normal layers.
func (e *Engine) resolveClarification(sess *models.Session, message, lower string) (string, bool) {
	if !sess.AwaitingClarification || len(sess.ClarificationOptions) == 0 {
		return "", false
	}

	for i, id := range sess.ClarificationOptions {
		entry, ok := e.catalog.Entry(id)
		if !ok {
			// The catalog was swapped while the question was pending.
			continue
		}
		if strings.Contains(message, strconv.Itoa(i+1)) ||
			strings.Contains(lower, strings.ToLower(entry.Category)) {
			sess.ClearClarification()
			sess.LastTopic = entry.Category
			return entry.Response, true
		}
	}
	return "", false
}

// emergencyReply handles messages carrying an emergency indicator. A
// strong keyword match answers directly; otherwise the coarse category
// table narrows the emergency down or asks which one it is.
func (e *Engine) emergencyReply(sess *models.Session, message, lower string) string {
	matches := e.index.Score(message)
	if len(matches) > 0 && matches[0].Score >= emergencyScoreMin {
		entry, _ := e.catalog.Entry(matches[0].EntryID)
		sess.LastTopic = entry.Category
		return emergencyHeader(entry.Category) + entry.Response
	}

	options := e.collectCoarse(DetectTypes(lower))
	switch len(options) {
	case 0:
		return generalEmergencyText
	case 1:
		sess.LastTopic = options[0].Category
		return "⚠️ EMERGENCY DETECTED\n\n" + options[0].Response
	default:
		// Every candidate is selectable by number, even the ones past
		// the display cap.
		ids := make([]int, len(options))
		for i, opt := range options {
			ids[i] = opt.ID
		}
		sess.SetClarification(ids)
		return emergencyMenuReply(options)
	}
}

// collectCoarse gathers catalog entries mentioned by any detected coarse
// label, in catalog order, each entry at most once.
func (e *Engine) collectCoarse(labels []string) []models.CatalogEntry {
	if len(labels) == 0 {
		return nil
	}
	var options []models.CatalogEntry
	seen := make(map[int]bool)
	for _, entry := range e.catalog.Entries() {
		for _, label := range labels {
			if !entryMentions(entry, label) {
				continue
			}
			if !seen[entry.ID] {
				seen[entry.ID] = true
				options = append(options, entry)
			}
		}
	}
	return options
}

// queryReply handles non-emergency messages: a scored lookup first, then
// topic continuation, then the capability menu.
func (e *Engine) queryReply(sess *models.Session, message string) string {
	matches := e.index.Score(message)
	if len(matches) > 0 && matches[0].Score >= querySignalMin {
		var good []match.Match
		for _, m := range matches {
			if m.Score >= queryStrongMin {
				good = append(good, m)
			}
		}

		if len(good) > 1 {
			if len(good) > clarifyMax {
				good = good[:clarifyMax]
			}
			options := make([]models.CatalogEntry, len(good))
			ids := make([]int, len(good))
			for i, m := range good {
				options[i], _ = e.catalog.Entry(m.EntryID)
				ids[i] = m.EntryID
			}
			sess.SetClarification(ids)
			return queryMenuReply(options)
		}

		entry, _ := e.catalog.Entry(matches[0].EntryID)
		sess.LastTopic = entry.Category
		return entryWithQuestions(entry)
	}

	// The current user turn is already in the history, so anything past
	// one full exchange counts as an ongoing conversation.
	if sess.LastTopic != "" && len(sess.History) > 2 {
		return contextReply(sess.LastTopic)
	}
	return fallbackText
}

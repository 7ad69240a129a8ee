package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/antonkh/mafia-arena/internal/ai"
	"github.com/antonkh/mafia-arena/internal/models"
)

// SkipToken is the vote answer meaning "abstain".
const SkipToken = "skip"

// Sender routes one prompt through the provider pool.
type Sender interface {
	Send(ctx context.Context, conversation []ai.Turn) (*ai.Response, string, error)
}

// GameContext carries everything a prompt may embed about the session from
// one agent's point of view.
type GameContext struct {
	Role         models.Role
	Living       []string // names of living players, roster order
	NightResults string   // public summary of the last night, "" on round one
	Partners     []string // other living mafia names, mafia only
	MafiaVotes   []models.VoteEntry
	DayVotes     map[string]string  // voter name -> target name, "" = skip
	Discussion   []models.Utterance // utterances visible to this agent
}

// Generator builds role- and phase-aware prompts, sends them through the
// pool and validates the answers. It never fails: invalid or failed output
// resolves to a local heuristic so the orchestrator is never blocked.
type Generator struct {
	pool    Sender
	mu      sync.Mutex // guards rng; one generator serves every room
	rng     *rand.Rand
	timeout time.Duration
	log     zerolog.Logger
}

// NewGenerator creates a generator over the given pool. timeout bounds each
// outbound generation call.
func NewGenerator(pool Sender, rng *rand.Rand, timeout time.Duration, log zerolog.Logger) *Generator {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Generator{
		pool:    pool,
		rng:     rng,
		timeout: timeout,
		log:     log.With().Str("component", "bot-generator").Logger(),
	}
}

// Greeting produces the bot's introductory line for the opening round.
func (g *Generator) Greeting(ctx context.Context, b *Bot, gc GameContext) string {
	prompt := fmt.Sprintf(`You are playing the game "Mafia". Your role: %s.
Your personality: %s.
Your name: %s.

Other players: %s.

Write a short greeting (1-2 sentences) in your own name. Sound natural, do
not reveal your role, but show your character.
Answer with the greeting text only, no extra commentary.`,
		roleText(gc.Role), b.Persona.Description, b.Name, strings.Join(gc.Living, ", "))

	text, err := g.send(ctx, b, prompt)
	if err != nil || text == "" {
		return g.fallbackLine(b, greetingLines)
	}
	return text
}

// NightTarget picks the bot's covert night target. It returns "" only when
// no eligible target exists.
func (g *Generator) NightTarget(ctx context.Context, b *Bot, gc GameContext) string {
	eligible := g.eligibleTargets(b, gc)
	if len(eligible) == 0 {
		return ""
	}

	prompt := g.basePrompt(b, gc)
	prompt += fmt.Sprintf("\nLiving players to choose from: %s\n", strings.Join(eligible, ", "))

	switch gc.Role {
	case models.RoleMafia:
		votes, _ := json.Marshal(gc.MafiaVotes)
		partners := strings.Join(gc.Partners, ", ")
		if partners == "" {
			partners = "none"
		}
		prompt += fmt.Sprintf(`
You are mafia. Your mafia partners: %s
Current mafia votes: %s
Choose one player to kill. Weigh your partners' votes and the strategy.
Answer with the chosen player's name only, no extra text.`, partners, votes)
	case models.RoleDoctor:
		prompt += `
You are the doctor. Choose one player to protect.
Think about who the mafia is likely to target tonight.
Answer with the chosen player's name only, no extra text.`
	case models.RoleDetective:
		prompt += `
You are the detective. Choose one player to investigate.
Use your memory of previous checks.
Answer with the chosen player's name only, no extra text.`
	}

	text, err := g.send(ctx, b, prompt)
	if err == nil {
		if target, ok := matchName(text, eligible); ok {
			return target
		}
		g.log.Debug().Str("bot", b.Name).Str("answer", text).Msg("night target not a living player, using fallback")
	}
	return eligible[g.intn(len(eligible))]
}

// Speech produces the bot's discussion statement for the current day.
func (g *Generator) Speech(ctx context.Context, b *Bot, gc GameContext) string {
	prompt := g.basePrompt(b, gc)
	if len(gc.Discussion) > 0 {
		prompt += "\n\nStatements so far today:\n"
		for i, u := range gc.Discussion {
			prompt += fmt.Sprintf("%d. %s: %s\n", i+1, u.Speaker, u.Text)
		}
	}
	prompt += `
Share your suspicions and thoughts about who might be mafia.
Sound natural, use your personality.
Do not reveal your role if you are the detective or the doctor.
Answer briefly (2-3 sentences).`

	text, err := g.send(ctx, b, prompt)
	if err != nil || text == "" {
		return g.fallbackLine(b, speechLines)
	}
	return text
}

// Vote picks the bot's exile vote. The second return is false when the bot
// abstains.
func (g *Generator) Vote(ctx context.Context, b *Bot, gc GameContext) (string, bool) {
	eligible := g.eligibleTargets(b, gc)
	if len(eligible) == 0 {
		return "", false
	}

	prompt := g.basePrompt(b, gc)
	if len(gc.Discussion) > 0 {
		prompt += "\n\nAll statements today:\n"
		for i, u := range gc.Discussion {
			prompt += fmt.Sprintf("%d. %s: %s\n", i+1, u.Speaker, u.Text)
		}
	}
	tally, _ := json.Marshal(gc.DayVotes)
	prompt += fmt.Sprintf(`
Living players to vote for: %s
Current votes: %s
Who do you vote for? If you have no solid grounds, you may pass.
Answer with a player's name or the word "%s", no extra text.`,
		strings.Join(eligible, ", "), tally, SkipToken)

	text, err := g.send(ctx, b, prompt)
	if err == nil {
		if strings.EqualFold(strings.TrimSpace(text), SkipToken) {
			return "", false
		}
		if target, ok := matchName(text, eligible); ok {
			return target, true
		}
		g.log.Debug().Str("bot", b.Name).Str("answer", text).Msg("vote not a living player, using fallback")
	}
	return eligible[g.intn(len(eligible))], true
}

// basePrompt is the shared prologue: role, persona, roster, memory and the
// public outcome of the previous night.
func (g *Generator) basePrompt(b *Bot, gc GameContext) string {
	memory, _ := json.Marshal(b.Memory)
	prompt := fmt.Sprintf(`You are playing the game "Mafia". Your role: %s.
Your personality: %s.
Your name: %s.

Living players: %s
Your memory: %s`,
		roleText(gc.Role), b.Persona.Description, b.Name,
		strings.Join(gc.Living, ", "), memory)

	if gc.NightResults != "" {
		prompt += "\n\nLast night's results:\n" + gc.NightResults
		if gc.Role == models.RoleDetective && len(b.Memory.Inspections) > 0 {
			last := b.Memory.Inspections[len(b.Memory.Inspections)-1]
			prompt += fmt.Sprintf("\n\nYour last check: %s - %s", last.Target, last.Role)
		}
	}
	return prompt
}

// send pushes one prompt through the pool and, on success, commits the
// exchange to the bot's conversation history.
func (g *Generator) send(ctx context.Context, b *Bot, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	user := ai.UserTurn(prompt)
	conversation := append(b.History.Snapshot(), user)
	resp, providerName, err := g.pool.Send(ctx, conversation)
	if err != nil {
		g.log.Warn().Str("bot", b.Name).Err(err).Msg("generation failed, falling back to heuristic")
		return "", err
	}
	b.History.Append(user)
	b.History.Append(ai.ModelTurn(resp.Text))
	g.log.Debug().Str("bot", b.Name).Str("provider", providerName).Msg("generated response")
	return strings.TrimSpace(resp.Text), nil
}

// eligibleTargets is every living player except the bot itself.
func (g *Generator) eligibleTargets(b *Bot, gc GameContext) []string {
	out := make([]string, 0, len(gc.Living))
	for _, name := range gc.Living {
		if name != b.Name {
			out = append(out, name)
		}
	}
	return out
}

func (g *Generator) fallbackLine(b *Bot, lines []string) string {
	return fmt.Sprintf(lines[g.intn(len(lines))], b.Name)
}

func (g *Generator) intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// matchName resolves a model answer to an eligible player name,
// case-insensitively, tolerating surrounding punctuation.
func matchName(answer string, eligible []string) (string, bool) {
	cleaned := strings.Trim(strings.TrimSpace(answer), `."'!`)
	for _, name := range eligible {
		if strings.EqualFold(cleaned, name) {
			return name, true
		}
	}
	return "", false
}

func roleText(r models.Role) string {
	switch r {
	case models.RoleMafia:
		return "mafia"
	case models.RoleDoctor:
		return "doctor"
	case models.RoleDetective:
		return "detective"
	case models.RoleCitizen:
		return "civilian"
	default:
		return "unknown"
	}
}

var greetingLines = []string{
	"Hi everyone! I'm %s, ready to play!",
	"Hello all! %s here.",
	"Good day! My name is %s.",
	"Hey players! %s checking in.",
	"Greetings everyone! I'm %s.",
}

var speechLines = []string{
	"I'm %s. We should watch how people behave before jumping to conclusions.",
	"%s here. Let's analyze the situation calmly.",
	"As %s, I think it's important to listen to everyone.",
	"%s speaking: no solid suspicions from me yet.",
	"I'm %s. The details are what will give the mafia away.",
}

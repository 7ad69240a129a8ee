package bot

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/antonkh/mafia-arena/internal/ai"
)

// MemoryEventCap bounds how many past events a bot remembers.
const MemoryEventCap = 20

// botNames is the fixed pool of display names for bots. Session setup fails
// fast when more bots are requested than names remain.
var botNames = []string{
	"Oleksandr", "Maria", "Dmytro", "Anna", "Serhiy", "Olena",
	"Mykhailo", "Olha", "Andriy", "Nataliya", "Ihor", "Tetiana",
	"Volodymyr", "Svitlana", "Pavlo", "Yuliya", "Mykola", "Iryna",
}

// Persona is a bot's fixed character, woven into every prompt.
type Persona struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var personas = []Persona{
	{Type: "aggressive", Description: "aggressive and straightforward"},
	{Type: "cautious", Description: "cautious and analytical"},
	{Type: "social", Description: "sociable and friendly"},
	{Type: "mysterious", Description: "mysterious and quiet"},
	{Type: "logical", Description: "logical and rational"},
}

// Inspection is one detective check result remembered by a bot.
type Inspection struct {
	Target string `json:"target"`
	Role   string `json:"role"`
	Round  int    `json:"round"`
}

// Suspicion is a note a bot keeps about another player.
type Suspicion struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Event is one remembered game occurrence.
type Event struct {
	Round int    `json:"round"`
	Text  string `json:"text"`
}

// Memory is a bot's bounded record of the game so far.
type Memory struct {
	Inspections []Inspection `json:"detectiveResults"`
	Suspicions  []Suspicion  `json:"suspicions"`
	Events      []Event      `json:"gameHistory"`
	Partner     string       `json:"mafiaPartner,omitempty"`
}

// Bot is an autonomous participant: identity plus memory and a private
// conversation history against the generation gateway.
type Bot struct {
	ID      string
	Name    string
	Persona Persona
	Memory  Memory
	History *ai.History
}

// Registry owns every bot of a session.
type Registry struct {
	mu         sync.Mutex
	bots       map[string]*Bot
	order      []string
	used       map[string]bool
	rng        *rand.Rand
	historyMax int
}

// NewRegistry creates an empty registry. historyMax caps each bot's
// conversation history.
func NewRegistry(historyMax int, rng *rand.Rand) *Registry {
	return &Registry{
		bots:       make(map[string]*Bot),
		used:       make(map[string]bool),
		rng:        rng,
		historyMax: historyMax,
	}
}

// Create makes a new bot with an unused name and a random persona. It fails
// when the name pool is exhausted.
func (r *Registry) Create() (*Bot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var available []string
	for _, name := range botNames {
		if !r.used[name] {
			available = append(available, name)
		}
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("no bot names left (%d in use)", len(r.used))
	}

	name := available[r.rng.Intn(len(available))]
	r.used[name] = true

	b := &Bot{
		ID:      "bot_" + uuid.New().String(),
		Name:    name,
		Persona: personas[r.rng.Intn(len(personas))],
		History: ai.NewHistory(r.historyMax),
	}
	r.bots[b.ID] = b
	r.order = append(r.order, b.ID)
	return b, nil
}

// Get returns the bot with the given participant ID.
func (r *Registry) Get(id string) (*Bot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	return b, ok
}

// All returns every bot in creation order.
func (r *Registry) All() []*Bot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Bot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.bots[id])
	}
	return out
}

// Clear removes every bot and frees their names.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots = make(map[string]*Bot)
	r.order = nil
	r.used = make(map[string]bool)
}

// RecordEvent appends an event to a bot's memory, keeping only the last
// MemoryEventCap entries.
func (r *Registry) RecordEvent(id string, round int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bots[id]
	if !ok {
		return
	}
	b.Memory.Events = append(b.Memory.Events, Event{Round: round, Text: text})
	if len(b.Memory.Events) > MemoryEventCap {
		b.Memory.Events = b.Memory.Events[len(b.Memory.Events)-MemoryEventCap:]
	}
}

// AddInspection stores a detective check result on a bot.
func (r *Registry) AddInspection(id string, target string, role string, round int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bots[id]; ok {
		b.Memory.Inspections = append(b.Memory.Inspections, Inspection{Target: target, Role: role, Round: round})
	}
}

// AddSuspicion stores a suspicion note on a bot.
func (r *Registry) AddSuspicion(id string, target string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bots[id]; ok {
		b.Memory.Suspicions = append(b.Memory.Suspicions, Suspicion{Target: target, Reason: reason})
	}
}

// SetPartner records a bot's mafia partner name.
func (r *Registry) SetPartner(id string, partner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bots[id]; ok {
		b.Memory.Partner = partner
	}
}

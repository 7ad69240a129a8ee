package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/antonkh/mafia-arena/internal/bot"
	"github.com/antonkh/mafia-arena/internal/models"
)

// ActionGenerator produces bot behaviour. *bot.Generator implements it;
// tests substitute a stub.
type ActionGenerator interface {
	Greeting(ctx context.Context, b *bot.Bot, gc bot.GameContext) string
	NightTarget(ctx context.Context, b *bot.Bot, gc bot.GameContext) string
	Speech(ctx context.Context, b *bot.Bot, gc bot.GameContext) string
	Vote(ctx context.Context, b *bot.Bot, gc bot.GameContext) (string, bool)
}

// Notifier delivers session output. The transport layer implements it; all
// methods must return promptly.
type Notifier interface {
	StateChanged(snap models.Snapshot)
	RoleAssigned(playerID string, role models.Role)
	DetectiveResult(playerID string, target string, role string)
	MafiaVotes(playerIDs []string, votes []models.VoteEntry, consensus string)
}

// Session is the phase orchestrator for one game: it owns the roster, the
// round counter and the current phase, and advances through
// waiting → intro_day → (night → day)* → finished.
//
// All state is guarded by one mutex. Waits are scheduled continuations, and
// bot generation calls run outside the lock; a stale result is discarded by
// the epoch and phase guards when it arrives.
type Session struct {
	mu     sync.Mutex
	log    zerolog.Logger
	sched  Scheduler
	gen    ActionGenerator
	bots   *bot.Registry
	notif  Notifier
	rng    *rand.Rand
	pacing Pacing

	phase   models.Phase
	round   int
	events  []models.LogEntry
	players []*models.Player

	mafiaCount   int
	queue        *SpeakingQueue
	night        *NightActions
	dayVotes     map[string]string // speaker ID -> target name, "" = skip
	nightSummary string
	discussion   []models.Utterance
	speakTimer   *int
	cancelSpeak  CancelFunc

	// epoch invalidates scheduled continuations across restarts
	epoch int
}

// NewSession creates a session in the waiting phase.
func NewSession(sched Scheduler, gen ActionGenerator, bots *bot.Registry, notif Notifier, rng *rand.Rand, pacing Pacing, log zerolog.Logger) *Session {
	return &Session{
		log:        log.With().Str("component", "session").Logger(),
		sched:      sched,
		gen:        gen,
		bots:       bots,
		notif:      notif,
		rng:        rng,
		pacing:     pacing,
		phase:      models.PhaseWaiting,
		mafiaCount: DefaultMafiaCount,
		night:      NewNightActions(),
	}
}

// Join adds a human player to the roster. Only accepted while waiting.
func (s *Session) Join(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if s.phase != models.PhaseWaiting {
		return "", fmt.Errorf("session already started")
	}
	if s.playerByName(name) != nil {
		return "", fmt.Errorf("name %q is taken", name)
	}

	p := &models.Player{ID: uuid.New().String(), Name: name, Alive: true}
	s.players = append(s.players, p)
	s.log.Info().Str("player", name).Msg("player joined")
	s.broadcast()
	return p.ID, nil
}

// Start assigns roles and begins the introductory day. mafiaCount and
// botCount outside their accepted ranges fall back to defaults. Fails fast
// and loud when the requested bots cannot be created.
func (s *Session) Start(mafiaCount, botCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseWaiting {
		return fmt.Errorf("session already started")
	}
	if mafiaCount >= 1 && mafiaCount <= MaxMafiaCount {
		s.mafiaCount = mafiaCount
	}
	if botCount < 0 || botCount > MaxBotCount {
		botCount = 0
	}

	created := make([]*bot.Bot, 0, botCount)
	for i := 0; i < botCount; i++ {
		b, err := s.bots.Create()
		if err != nil {
			s.bots.Clear()
			return fmt.Errorf("creating bots: %w", err)
		}
		created = append(created, b)
	}
	for _, b := range created {
		s.players = append(s.players, &models.Player{ID: b.ID, Name: b.Name, IsBot: true, Alive: true})
	}
	if len(s.players) == 0 {
		return fmt.Errorf("no players to start with")
	}

	assignRoles(s.players, s.mafiaCount, s.rng)
	s.seedMafiaKnowledge()
	for _, p := range s.players {
		if !p.IsBot {
			s.notif.RoleAssigned(p.ID, p.Role)
		}
	}

	s.log.Info().Int("players", len(s.players)).Int("mafia", s.mafiaCount).Int("bots", botCount).Msg("game started")
	s.startIntroDay()
	return nil
}

// seedMafiaKnowledge tells each mafia bot who its partners are.
func (s *Session) seedMafiaKnowledge() {
	mafia := s.livingByRole(models.RoleMafia)
	for _, p := range mafia {
		if !p.IsBot {
			continue
		}
		var partners []string
		for _, other := range mafia {
			if other.ID != p.ID {
				partners = append(partners, other.Name)
			}
		}
		if len(partners) > 0 {
			s.bots.SetPartner(p.ID, strings.Join(partners, ", "))
		}
	}
}

// NightAction records a living role-holder's covert submission. Invalid
// commands are silent no-ops.
func (s *Session) NightAction(playerID, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseNight {
		return
	}
	p := s.playerByID(playerID)
	if p == nil || !p.Alive {
		return
	}
	victim := s.playerByName(target)
	if victim == nil || !victim.Alive {
		return
	}
	// store the roster spelling, so save/kill comparison is exact
	s.submitNightAction(p, victim.Name)
}

// submitNightAction stores the action, pushes the mafia tally when relevant
// and resolves the night once every required submission is in. Lock held.
func (s *Session) submitNightAction(p *models.Player, target string) {
	switch p.Role {
	case models.RoleMafia:
		s.night.SubmitMafia(p.Name, target, !p.IsBot)
		s.pushMafiaVotes()
	case models.RoleDoctor:
		s.night.SubmitDoctor(p.Name, target)
	case models.RoleDetective:
		s.night.SubmitDetective(p.Name, target)
	default:
		return
	}
	s.log.Debug().Str("player", p.Name).Str("role", string(p.Role)).Str("target", target).Msg("night action recorded")
	if s.nightReady() {
		s.finishNight()
	}
}

// pushMafiaVotes sends the current kill tally and resolved consensus to
// every living mafia member. Lock held.
func (s *Session) pushMafiaVotes() {
	mafia := s.livingByRole(models.RoleMafia)
	ids := make([]string, 0, len(mafia))
	for _, p := range mafia {
		if !p.IsBot {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	s.notif.MafiaVotes(ids, s.night.MafiaVotes(), s.night.Consensus(len(mafia), s.rng))
}

func (s *Session) nightReady() bool {
	return s.night.Ready(
		len(s.livingByRole(models.RoleMafia)),
		len(s.livingByRole(models.RoleDoctor)) > 0,
		len(s.livingByRole(models.RoleDetective)) > 0,
	)
}

// StartSpeak starts the speak window for the current human speaker. Commands
// from anyone else are silently rejected.
func (s *Session) StartSpeak(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseIntroDay && s.phase != models.PhaseDay {
		return
	}
	current, ok := s.queue.Current()
	if !ok || current != playerID {
		return
	}
	p := s.playerByID(playerID)
	if p == nil || !p.Alive || p.IsBot {
		return
	}

	if s.cancelSpeak != nil {
		s.cancelSpeak()
	}
	seconds := s.pacing.SpeakSeconds
	s.speakTimer = &seconds
	s.broadcast()

	phase := s.phase
	s.cancelSpeak = s.afterLocked(time.Duration(seconds)*time.Second, func() {
		if s.phase != phase {
			return
		}
		s.speakTimer = nil
		if s.phase == models.PhaseIntroDay {
			// intro turns end on the timer alone
			s.queue.Advance()
			s.nextIntroSpeaker()
		} else {
			// day turns wait for the speaker's vote
			s.broadcast()
		}
	})
}

// DayVote records the current speaker's exile vote and advances the queue.
// nil target means abstain. Votes from anyone but the current human speaker
// are silently rejected.
func (s *Session) DayVote(playerID string, target *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseDay {
		return
	}
	current, ok := s.queue.Current()
	if !ok || current != playerID {
		return
	}
	p := s.playerByID(playerID)
	if p == nil || !p.Alive || p.IsBot {
		return
	}

	name := ""
	if target != nil {
		t := s.playerByName(*target)
		if t == nil || !t.Alive {
			return
		}
		name = t.Name
	}
	s.recordDayVote(playerID, name)
}

// recordDayVote stores one vote for the current speaker slot and moves on.
// Lock held.
func (s *Session) recordDayVote(playerID, target string) {
	s.dayVotes[playerID] = target
	p := s.playerByID(playerID)
	s.log.Debug().Str("player", p.Name).Str("target", target).Msg("day vote recorded")
	if p.IsBot && target != "" {
		s.bots.AddSuspicion(playerID, target, fmt.Sprintf("I voted against them on day %d", s.round))
	}
	if s.cancelSpeak != nil {
		s.cancelSpeak()
		s.cancelSpeak = nil
	}
	s.speakTimer = nil
	s.queue.Advance()
	s.nextDaySpeaker()
}

// Restart returns the session to the waiting phase: pending timers are
// invalidated, humans stay on the roster with role and life state cleared,
// and every bot is removed.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	if s.cancelSpeak != nil {
		s.cancelSpeak()
		s.cancelSpeak = nil
	}

	humans := s.players[:0]
	for _, p := range s.players {
		if !p.IsBot {
			p.Alive = true
			p.Role = models.RoleNone
			humans = append(humans, p)
		}
	}
	s.players = humans
	s.bots.Clear()

	s.phase = models.PhaseWaiting
	s.round = 0
	s.events = nil
	s.queue = nil
	s.night.Reset()
	s.dayVotes = nil
	s.nightSummary = ""
	s.discussion = nil
	s.speakTimer = nil
	s.log.Info().Msg("session restarted")
	s.broadcast()
}

// --- phase transitions (lock held) ---

func (s *Session) startIntroDay() {
	s.phase = models.PhaseIntroDay
	s.appendLog("The game begins! Introductions in turn, no voting.")
	s.queue = NewSpeakingQueue(s.players)
	s.speakTimer = nil
	s.broadcast()
	s.nextIntroSpeaker()
}

func (s *Session) nextIntroSpeaker() {
	current, ok := s.queue.Current()
	if !ok {
		s.startNight()
		return
	}
	s.speakTimer = nil
	s.broadcast()

	p := s.playerByID(current)
	if p == nil || !p.IsBot {
		return // humans advance via StartSpeak
	}
	s.scheduleGeneration(s.pacing.BotActionDelay, p.ID, func(b *bot.Bot, gc bot.GameContext) {
		greeting := s.gen.Greeting(context.Background(), b, gc)
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.stillCurrent(models.PhaseIntroDay, p.ID) {
			return
		}
		s.appendBotLog(p.Name, greeting)
		s.broadcast()
		s.afterLocked(s.pacing.BotActionDelay, func() {
			if !s.stillCurrent(models.PhaseIntroDay, p.ID) {
				return
			}
			s.queue.Advance()
			s.nextIntroSpeaker()
		})
	})
}

func (s *Session) startNight() {
	s.phase = models.PhaseNight
	s.round++
	s.night.Reset()
	s.speakTimer = nil
	s.appendLog(fmt.Sprintf("Night #%d falls over the town. Everyone sleeps...", s.round))
	s.broadcast()

	var actors []string
	for _, p := range s.players {
		if p.IsBot && p.Alive && (p.Role == models.RoleMafia || p.Role == models.RoleDoctor || p.Role == models.RoleDetective) {
			actors = append(actors, p.ID)
		}
	}
	s.afterLocked(s.pacing.NightStartDelay, func() {
		s.runBotNight(actors, 0)
	})
}

// runBotNight drives the bot night actors one at a time with a fixed delay
// in between, so later mafia bots see the tally so far. Lock held.
func (s *Session) runBotNight(actors []string, i int) {
	if s.phase != models.PhaseNight {
		return
	}
	if i >= len(actors) {
		return // waiting on human submissions
	}
	p := s.playerByID(actors[i])
	if p == nil || !p.Alive {
		s.runBotNight(actors, i+1)
		return
	}
	epoch := s.epoch
	round := s.round
	s.scheduleGenerationNow(p.ID, func(b *bot.Bot, gc bot.GameContext) {
		target := s.gen.NightTarget(context.Background(), b, gc)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch || s.phase != models.PhaseNight || s.round != round {
			return
		}
		if target != "" {
			if victim := s.playerByName(target); victim != nil && victim.Alive {
				s.submitNightAction(p, victim.Name)
				s.bots.RecordEvent(p.ID, s.round, fmt.Sprintf("night action as %s: targeted %s", p.Role, victim.Name))
			}
		}
		if s.phase != models.PhaseNight {
			return // night resolved by that submission
		}
		s.afterLocked(s.pacing.BotActionDelay, func() {
			s.runBotNight(actors, i+1)
		})
	})
}

// finishNight resolves the collected submissions into the night outcome,
// applies it, and either ends the game or opens the day. Lock held.
func (s *Session) finishNight() {
	mafiaAlive := len(s.livingByRole(models.RoleMafia))
	consensus := s.night.Consensus(mafiaAlive, s.rng)
	saved := s.night.DoctorTarget()
	checked := s.night.DetectiveTarget()

	killed := ""
	if consensus != "" && consensus != saved {
		if victim := s.playerByName(consensus); victim != nil && victim.Alive {
			victim.Alive = false
			killed = victim.Name
		}
	}

	var summary string
	switch {
	case killed != "":
		summary = fmt.Sprintf("During the night, %s was killed.", killed)
	case consensus != "":
		summary = fmt.Sprintf("The doctor saved %s!", consensus)
	default:
		summary = "Nobody was hurt during the night."
	}

	if checked != "" {
		s.deliverDetectiveResult(checked)
	}

	s.appendLog(summary)
	s.nightSummary = summary
	s.night.Reset()
	s.log.Info().Int("round", s.round).Str("killed", killed).Msg("night resolved")

	if s.checkTermination() {
		return
	}
	s.startDay()
}

// deliverDetectiveResult reports the checked player's current role — or a
// "dead" marker if the check target did not survive the night — privately
// to the detective. Lock held.
func (s *Session) deliverDetectiveResult(checked string) {
	detectives := s.livingByRole(models.RoleDetective)
	if len(detectives) == 0 {
		return
	}
	det := detectives[0]

	role := "dead"
	if target := s.playerByName(checked); target != nil && target.Alive {
		role = string(target.Role)
	}
	if det.IsBot {
		s.bots.AddInspection(det.ID, checked, role, s.round)
	} else {
		s.notif.DetectiveResult(det.ID, checked, role)
	}
}

func (s *Session) startDay() {
	s.phase = models.PhaseDay
	s.appendLog("Day comes. Discussion and voting in turn!")
	s.queue = NewSpeakingQueue(s.players)
	s.dayVotes = make(map[string]string)
	s.discussion = nil
	s.speakTimer = nil
	s.broadcast()
	s.nextDaySpeaker()
}

func (s *Session) nextDaySpeaker() {
	current, ok := s.queue.Current()
	if !ok {
		s.finishDay()
		return
	}
	s.speakTimer = nil
	s.broadcast()

	p := s.playerByID(current)
	if p == nil || !p.IsBot {
		return // humans speak via StartSpeak and vote via DayVote
	}

	seconds := s.pacing.SpeakSeconds
	s.speakTimer = &seconds
	s.broadcast()

	s.scheduleGeneration(s.pacing.BotActionDelay, p.ID, func(b *bot.Bot, gc bot.GameContext) {
		speech := s.gen.Speech(context.Background(), b, gc)
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.stillCurrent(models.PhaseDay, p.ID) {
			return
		}
		s.appendBotLog(p.Name, speech)
		s.discussion = append(s.discussion, models.Utterance{Speaker: p.Name, Text: speech})
		s.broadcast()

		s.scheduleGeneration(s.pacing.BotActionDelay, p.ID, func(b *bot.Bot, gc bot.GameContext) {
			target, voted := s.gen.Vote(context.Background(), b, gc)
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.stillCurrent(models.PhaseDay, p.ID) {
				return
			}
			if !voted {
				target = ""
			}
			s.recordDayVote(p.ID, target)
		})
	})
}

// finishDay tallies the exile vote. A strict plurality is exiled; ties mean
// nobody is. Lock held.
func (s *Session) finishDay() {
	s.speakTimer = nil

	counts := make(map[string]int)
	for _, target := range s.dayVotes {
		if target != "" {
			counts[target]++
		}
	}
	max := 0
	exiled := ""
	tie := false
	for name, count := range counts {
		switch {
		case count > max:
			max, exiled, tie = count, name, false
		case count == max:
			tie = true
		}
	}

	if exiled != "" && !tie {
		if p := s.playerByName(exiled); p != nil {
			p.Alive = false
		}
		s.appendLog(fmt.Sprintf("By the day's vote, %s was exiled.", exiled))
	} else {
		s.appendLog("Nobody was exiled.")
	}
	s.log.Info().Int("round", s.round).Str("exiled", exiled).Bool("tie", tie).Msg("day resolved")

	if s.checkTermination() {
		return
	}
	s.startNight()
}

// checkTermination ends the game when a faction has won. Lock held.
func (s *Session) checkTermination() bool {
	mafiaAlive := len(s.livingByRole(models.RoleMafia))
	othersAlive := 0
	for _, p := range s.players {
		if p.Alive && p.Role != models.RoleMafia {
			othersAlive++
		}
	}

	switch {
	case mafiaAlive == 0:
		s.appendLog("The civilians win!")
	case mafiaAlive >= othersAlive:
		s.appendLog("The mafia wins!")
	default:
		return false
	}
	s.phase = models.PhaseFinished
	s.speakTimer = nil
	s.log.Info().Int("round", s.round).Msg("game finished")
	s.broadcast()
	return true
}

// --- scheduling helpers ---

// afterLocked schedules fn to run under the session lock, skipped if the
// session has been restarted in the meantime.
func (s *Session) afterLocked(d time.Duration, fn func()) CancelFunc {
	epoch := s.epoch
	return s.sched.After(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch {
			return
		}
		fn()
	})
}

// scheduleGeneration schedules a bot generation step. The prompt context is
// captured under the lock when the timer fires; fn then runs unlocked so an
// outbound generation call never stalls the session.
func (s *Session) scheduleGeneration(d time.Duration, playerID string, fn func(b *bot.Bot, gc bot.GameContext)) {
	epoch := s.epoch
	s.sched.After(d, func() {
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		b, ok := s.bots.Get(playerID)
		if !ok {
			s.mu.Unlock()
			return
		}
		p := s.playerByID(playerID)
		if p == nil || !p.Alive {
			s.mu.Unlock()
			return
		}
		gc := s.contextFor(p)
		s.mu.Unlock()
		fn(b, gc)
	})
}

// scheduleGenerationNow is scheduleGeneration for a step already due; the
// caller holds the lock.
func (s *Session) scheduleGenerationNow(playerID string, fn func(b *bot.Bot, gc bot.GameContext)) {
	b, ok := s.bots.Get(playerID)
	if !ok {
		return
	}
	p := s.playerByID(playerID)
	if p == nil || !p.Alive {
		return
	}
	gc := s.contextFor(p)
	go fn(b, gc)
}

// stillCurrent reports whether the session is in the given phase with the
// given current speaker; used to discard stale generation results. Lock
// held.
func (s *Session) stillCurrent(phase models.Phase, playerID string) bool {
	if s.phase != phase || s.queue == nil {
		return false
	}
	current, ok := s.queue.Current()
	return ok && current == playerID
}

// contextFor assembles the prompt context for one bot. Lock held.
func (s *Session) contextFor(p *models.Player) bot.GameContext {
	gc := bot.GameContext{
		Role:         p.Role,
		Living:       s.livingNames(),
		NightResults: s.nightSummary,
		Discussion:   append([]models.Utterance(nil), s.discussion...),
	}
	if p.Role == models.RoleMafia {
		for _, m := range s.livingByRole(models.RoleMafia) {
			if m.ID != p.ID {
				gc.Partners = append(gc.Partners, m.Name)
			}
		}
		gc.MafiaVotes = s.night.MafiaVotes()
	}
	if s.phase == models.PhaseDay {
		gc.DayVotes = make(map[string]string, len(s.dayVotes))
		for id, target := range s.dayVotes {
			if voter := s.playerByID(id); voter != nil {
				gc.DayVotes[voter.Name] = target
			}
		}
	}
	return gc
}

// --- roster helpers (lock held) ---

func (s *Session) playerByID(id string) *models.Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) playerByName(name string) *models.Player {
	for _, p := range s.players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

func (s *Session) livingByRole(role models.Role) []*models.Player {
	var out []*models.Player
	for _, p := range s.players {
		if p.Alive && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) livingNames() []string {
	var out []string
	for _, p := range s.players {
		if p.Alive {
			out = append(out, p.Name)
		}
	}
	return out
}

func (s *Session) appendLog(text string) {
	s.events = append(s.events, models.LogEntry{Text: text})
}

func (s *Session) appendBotLog(from, text string) {
	s.events = append(s.events, models.LogEntry{Text: from + ": " + text, Kind: "bot", From: from})
}

// snapshot builds the public session state. Lock held.
func (s *Session) snapshot() models.Snapshot {
	snap := models.Snapshot{
		Phase:   s.phase,
		Round:   s.round,
		Log:     append([]models.LogEntry(nil), s.events...),
		Players: make([]models.PlayerView, 0, len(s.players)),
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, models.PlayerView{Name: p.Name, Alive: p.Alive})
	}
	if s.queue != nil && (s.phase == models.PhaseIntroDay || s.phase == models.PhaseDay) {
		if current, ok := s.queue.Current(); ok {
			for i, p := range s.players {
				if p.ID == current {
					idx := i
					snap.CurrentSpeaker = &idx
					break
				}
			}
		}
	}
	if s.speakTimer != nil {
		t := *s.speakTimer
		snap.SpeakTimer = &t
	}
	return snap
}

func (s *Session) broadcast() {
	s.notif.StateChanged(s.snapshot())
}

// Snapshot returns the current public session state.
func (s *Session) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Phase returns the current phase.
func (s *Session) Phase() models.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// RoleOf returns a roster member's assigned role, so a reconnecting client
// can be re-told its role privately.
func (s *Session) RoleOf(playerID string) (models.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerByID(playerID)
	if p == nil || p.Role == models.RoleNone {
		return models.RoleNone, false
	}
	return p.Role, true
}

// HasPlayer reports whether the ID belongs to the roster.
func (s *Session) HasPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerByID(playerID) != nil
}

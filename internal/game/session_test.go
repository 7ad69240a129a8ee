package game

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonkh/mafia-arena/internal/bot"
	"github.com/antonkh/mafia-arena/internal/models"
)

// manualScheduler queues callbacks and fires them on demand, so phase
// transitions run deterministically under test.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	fn        func()
	cancelled bool
}

func (s *manualScheduler) After(d time.Duration, fn func()) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{fn: fn}
	s.tasks = append(s.tasks, task)
	return func() {
		s.mu.Lock()
		task.cancelled = true
		s.mu.Unlock()
	}
}

// fire runs the oldest pending callback. Returns false when none remain.
func (s *manualScheduler) fire() bool {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			return false
		}
		task := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()
		if task.cancelled {
			continue
		}
		task.fn()
		return true
	}
}

func (s *manualScheduler) drain() {
	for s.fire() {
	}
}

// stubGenerator answers instantly with fixed, self-avoiding choices.
type stubGenerator struct{}

func (stubGenerator) Greeting(ctx context.Context, b *bot.Bot, gc bot.GameContext) string {
	return "hello"
}

func (stubGenerator) Speech(ctx context.Context, b *bot.Bot, gc bot.GameContext) string {
	return "statement"
}

func (stubGenerator) NightTarget(ctx context.Context, b *bot.Bot, gc bot.GameContext) string {
	for _, name := range gc.Living {
		if name != b.Name {
			return name
		}
	}
	return ""
}

func (stubGenerator) Vote(ctx context.Context, b *bot.Bot, gc bot.GameContext) (string, bool) {
	for _, name := range gc.Living {
		if name != b.Name {
			return name, true
		}
	}
	return "", false
}

type detectiveMsg struct {
	playerID string
	target   string
	role     string
}

type mafiaMsg struct {
	playerIDs []string
	votes     []models.VoteEntry
	consensus string
}

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	roles     map[string]models.Role
	detective []detectiveMsg
	mafia     []mafiaMsg
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{roles: make(map[string]models.Role)}
}

func (n *recordingNotifier) StateChanged(snap models.Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, snap)
}

func (n *recordingNotifier) RoleAssigned(playerID string, role models.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.roles[playerID] = role
}

func (n *recordingNotifier) DetectiveResult(playerID, target, role string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.detective = append(n.detective, detectiveMsg{playerID, target, role})
}

func (n *recordingNotifier) MafiaVotes(playerIDs []string, votes []models.VoteEntry, consensus string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mafia = append(n.mafia, mafiaMsg{playerIDs, votes, consensus})
}

func (n *recordingNotifier) lastDetective() (detectiveMsg, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.detective) == 0 {
		return detectiveMsg{}, false
	}
	return n.detective[len(n.detective)-1], true
}

func (n *recordingNotifier) lastMafia() (mafiaMsg, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.mafia) == 0 {
		return mafiaMsg{}, false
	}
	return n.mafia[len(n.mafia)-1], true
}

func newTestSession(t *testing.T, seed int64) (*Session, *manualScheduler, *recordingNotifier) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	sched := &manualScheduler{}
	notif := newRecordingNotifier()
	registry := bot.NewRegistry(50, rng)
	s := NewSession(sched, stubGenerator{}, registry, notif, rng, DefaultPacing(), zerolog.Nop())
	return s, sched, notif
}

func joinAll(t *testing.T, s *Session, names ...string) map[string]string {
	t.Helper()
	ids := make(map[string]string, len(names))
	for _, name := range names {
		id, err := s.Join(name)
		require.NoError(t, err)
		ids[name] = id
	}
	return ids
}

// runIntro clicks every human through the introduction pass.
func runIntro(t *testing.T, s *Session, sched *manualScheduler, orderedIDs []string) {
	t.Helper()
	for _, id := range orderedIDs {
		s.StartSpeak(id)
		sched.drain()
	}
	require.Equal(t, models.PhaseNight, s.Phase())
}

func roleHolders(t *testing.T, s *Session, ids map[string]string) map[models.Role]string {
	t.Helper()
	holders := make(map[models.Role]string)
	for name, id := range ids {
		role, ok := s.RoleOf(id)
		require.True(t, ok, "no role for %s", name)
		holders[role] = name
	}
	return holders
}

func lastLogText(s *Session) string {
	log := s.Snapshot().Log
	if len(log) == 0 {
		return ""
	}
	return log[len(log)-1].Text
}

func livingNamesOf(s *Session) map[string]bool {
	out := make(map[string]bool)
	for _, p := range s.Snapshot().Players {
		out[p.Name] = p.Alive
	}
	return out
}

func TestJoinRules(t *testing.T) {
	s, _, _ := newTestSession(t, 1)

	_, err := s.Join("Alice")
	require.NoError(t, err)

	_, err = s.Join("  ")
	assert.Error(t, err)

	_, err = s.Join("alice")
	assert.Error(t, err, "names are unique case-insensitively")

	require.NoError(t, func() error {
		_, err := s.Join("Bob")
		return err
	}())
	require.NoError(t, s.Start(1, 0))

	_, err = s.Join("Carol")
	assert.Error(t, err, "joining after start is rejected")
}

func TestFullHumanGameCiviliansWin(t *testing.T) {
	s, sched, notif := newTestSession(t, 3)
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	ids := joinAll(t, s, names...)

	require.NoError(t, s.Start(1, 0))
	require.Equal(t, models.PhaseIntroDay, s.Phase())

	holders := roleHolders(t, s, ids)
	require.Len(t, holders, 4, "four distinct roles for four players")
	mafia := holders[models.RoleMafia]
	doctor := holders[models.RoleDoctor]
	detective := holders[models.RoleDetective]
	citizen := holders[models.RoleCitizen]

	// every human was told their role privately
	notif.mu.Lock()
	assert.Len(t, notif.roles, 4)
	notif.mu.Unlock()

	ordered := make([]string, 0, 4)
	for _, name := range names {
		ordered = append(ordered, ids[name])
	}
	runIntro(t, s, sched, ordered)

	// night one: the mafia kills the citizen, the doctor guesses wrong,
	// the detective checks the mafia
	s.NightAction(ids[mafia], citizen)
	s.NightAction(ids[doctor], doctor)
	s.NightAction(ids[detective], mafia)

	require.Equal(t, models.PhaseDay, s.Phase())
	alive := livingNamesOf(s)
	assert.False(t, alive[citizen])
	assert.True(t, alive[mafia])

	check, ok := notif.lastDetective()
	require.True(t, ok)
	assert.Equal(t, ids[detective], check.playerID)
	assert.Equal(t, mafia, check.target)
	assert.Equal(t, "mafia", check.role)

	// day one: the three survivors vote the mafia out
	target := mafia
	for _, name := range names {
		if !livingNamesOf(s)[name] {
			continue
		}
		s.DayVote(ids[name], &target)
	}

	require.Equal(t, models.PhaseFinished, s.Phase())
	assert.Equal(t, "The civilians win!", lastLogText(s))
	assert.False(t, livingNamesOf(s)[mafia])
}

func TestDoctorSaveNullifiesKill(t *testing.T) {
	s, sched, _ := newTestSession(t, 5)
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	ids := joinAll(t, s, names...)
	require.NoError(t, s.Start(1, 0))

	holders := roleHolders(t, s, ids)
	mafia := holders[models.RoleMafia]
	doctor := holders[models.RoleDoctor]
	detective := holders[models.RoleDetective]
	citizen := holders[models.RoleCitizen]

	ordered := make([]string, 0, 4)
	for _, name := range names {
		ordered = append(ordered, ids[name])
	}
	runIntro(t, s, sched, ordered)

	// the doctor protects exactly the mafia's target
	s.NightAction(ids[mafia], citizen)
	s.NightAction(ids[doctor], citizen)
	s.NightAction(ids[detective], doctor)

	require.Equal(t, models.PhaseDay, s.Phase())
	for name, alive := range livingNamesOf(s) {
		assert.True(t, alive, "%s should have survived", name)
	}
	snap := s.Snapshot()
	found := false
	for _, e := range snap.Log {
		if e.Text == "The doctor saved "+citizen+"!" {
			found = true
		}
	}
	assert.True(t, found, "save should be announced")
}

func TestDoctorSaveMatchesCaseInsensitiveSubmission(t *testing.T) {
	s, sched, _ := newTestSession(t, 19)
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	ids := joinAll(t, s, names...)
	require.NoError(t, s.Start(1, 0))

	holders := roleHolders(t, s, ids)
	mafia := holders[models.RoleMafia]
	doctor := holders[models.RoleDoctor]
	detective := holders[models.RoleDetective]
	citizen := holders[models.RoleCitizen]

	ordered := make([]string, 0, 4)
	for _, name := range names {
		ordered = append(ordered, ids[name])
	}
	runIntro(t, s, sched, ordered)

	// the mafia submits a differently-cased spelling of the same target;
	// the save must still prevent the kill
	s.NightAction(ids[mafia], strings.ToLower(citizen))
	s.NightAction(ids[doctor], citizen)
	s.NightAction(ids[detective], mafia)

	require.Equal(t, models.PhaseDay, s.Phase())
	for name, alive := range livingNamesOf(s) {
		assert.True(t, alive, "%s should have survived", name)
	}
	found := false
	for _, e := range s.Snapshot().Log {
		if e.Text == "The doctor saved "+citizen+"!" {
			found = true
		}
	}
	assert.True(t, found, "save should be announced with the roster spelling")
}

func TestDayVoteTieExilesNobody(t *testing.T) {
	s, sched, _ := newTestSession(t, 7)
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	ids := joinAll(t, s, names...)
	require.NoError(t, s.Start(1, 0))

	holders := roleHolders(t, s, ids)
	mafia := holders[models.RoleMafia]
	doctor := holders[models.RoleDoctor]
	detective := holders[models.RoleDetective]
	citizen := holders[models.RoleCitizen]

	ordered := make([]string, 0, 4)
	for _, name := range names {
		ordered = append(ordered, ids[name])
	}
	runIntro(t, s, sched, ordered)

	// keep everyone alive so four voters split two against two
	s.NightAction(ids[mafia], citizen)
	s.NightAction(ids[doctor], citizen)
	s.NightAction(ids[detective], mafia)
	require.Equal(t, models.PhaseDay, s.Phase())

	targets := map[string]string{
		names[0]: mafia, names[1]: mafia,
		names[2]: doctor, names[3]: doctor,
	}
	for _, name := range names {
		target := targets[name]
		s.DayVote(ids[name], &target)
	}

	require.Equal(t, models.PhaseNight, s.Phase())
	assert.Equal(t, 2, s.Snapshot().Round)
	found := false
	for _, e := range s.Snapshot().Log {
		if e.Text == "Nobody was exiled." {
			found = true
		}
	}
	assert.True(t, found)
	for _, alive := range livingNamesOf(s) {
		assert.True(t, alive)
	}
}

func TestDayVoteOnlyCurrentSpeakerCounts(t *testing.T) {
	s, sched, _ := newTestSession(t, 9)
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	ids := joinAll(t, s, names...)
	require.NoError(t, s.Start(1, 0))

	holders := roleHolders(t, s, ids)
	ordered := make([]string, 0, 4)
	for _, name := range names {
		ordered = append(ordered, ids[name])
	}
	runIntro(t, s, sched, ordered)

	s.NightAction(ids[holders[models.RoleMafia]], holders[models.RoleCitizen])
	s.NightAction(ids[holders[models.RoleDoctor]], holders[models.RoleCitizen])
	s.NightAction(ids[holders[models.RoleDetective]], holders[models.RoleMafia])
	require.Equal(t, models.PhaseDay, s.Phase())

	snap := s.Snapshot()
	require.NotNil(t, snap.CurrentSpeaker)
	first := *snap.CurrentSpeaker

	// a vote from anyone else is silently dropped
	target := names[0]
	for _, name := range names {
		if ids[name] != ordered[first] {
			s.DayVote(ids[name], &target)
			break
		}
	}
	snap = s.Snapshot()
	require.NotNil(t, snap.CurrentSpeaker)
	assert.Equal(t, first, *snap.CurrentSpeaker, "queue must not advance")
}

func TestMafiaVoteTallySharedPrivately(t *testing.T) {
	s, sched, notif := newTestSession(t, 11)
	names := []string{"Alice", "Bob", "Carol", "Dave", "Eve"}
	ids := joinAll(t, s, names...)
	require.NoError(t, s.Start(2, 0))

	mafiaNames := make([]string, 0, 2)
	var doctor, detective string
	for name, id := range ids {
		role, _ := s.RoleOf(id)
		switch role {
		case models.RoleMafia:
			mafiaNames = append(mafiaNames, name)
		case models.RoleDoctor:
			doctor = name
		case models.RoleDetective:
			detective = name
		}
	}
	require.Len(t, mafiaNames, 2)

	ordered := make([]string, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, ids[name])
	}
	runIntro(t, s, sched, ordered)

	s.NightAction(ids[mafiaNames[0]], doctor)
	msg, ok := notif.lastMafia()
	require.True(t, ok)
	assert.ElementsMatch(t, []string{ids[mafiaNames[0]], ids[mafiaNames[1]]}, msg.playerIDs)
	require.Len(t, msg.votes, 1)
	assert.Equal(t, "", msg.consensus, "no consensus while a vote is missing")

	s.NightAction(ids[mafiaNames[1]], detective)
	msg, ok = notif.lastMafia()
	require.True(t, ok)
	require.Len(t, msg.votes, 2)
	assert.Equal(t, doctor, msg.consensus, "first human submission decides")
}

func TestNightActionIgnoredOutsideNight(t *testing.T) {
	s, _, _ := newTestSession(t, 13)
	ids := joinAll(t, s, "Alice", "Bob", "Carol", "Dave")
	require.NoError(t, s.Start(1, 0))
	require.Equal(t, models.PhaseIntroDay, s.Phase())

	s.NightAction(ids["Alice"], "Bob")
	assert.Equal(t, models.PhaseIntroDay, s.Phase())
	for _, alive := range livingNamesOf(s) {
		assert.True(t, alive)
	}
}

func TestRestartKeepsHumansDropsBots(t *testing.T) {
	s, sched, _ := newTestSession(t, 15)
	ids := joinAll(t, s, "Alice", "Bob")
	require.NoError(t, s.Start(1, 2))

	snap := s.Snapshot()
	require.Len(t, snap.Players, 4)
	require.Equal(t, models.PhaseIntroDay, s.Phase())

	s.Restart()
	require.Equal(t, models.PhaseWaiting, s.Phase())

	snap = s.Snapshot()
	require.Len(t, snap.Players, 2)
	for _, p := range snap.Players {
		assert.True(t, p.Alive)
	}
	_, ok := s.RoleOf(ids["Alice"])
	assert.False(t, ok, "roles are cleared on restart")
	assert.Empty(t, snap.Log)

	// stale timers from the old game must not fire into the new one
	sched.drain()
	assert.Equal(t, models.PhaseWaiting, s.Phase())

	// the room is reusable
	require.NoError(t, s.Start(1, 0))
	assert.Equal(t, models.PhaseIntroDay, s.Phase())
}

func TestBotDayVoteRecordsSuspicion(t *testing.T) {
	s, _, _ := newTestSession(t, 21)
	_, err := s.Join("Alice")
	require.NoError(t, err)
	b, err := s.bots.Create()
	require.NoError(t, err)

	// hand-build a day in progress with the bot as current speaker
	s.mu.Lock()
	s.players = append(s.players, &models.Player{ID: b.ID, Name: b.Name, IsBot: true, Alive: true, Role: models.RoleCitizen})
	for _, p := range s.players {
		p.Alive = true
		if p.Role == models.RoleNone {
			p.Role = models.RoleCitizen
		}
	}
	s.phase = models.PhaseDay
	s.round = 1
	s.queue = NewSpeakingQueue(s.players)
	s.queue.Advance()
	s.dayVotes = make(map[string]string)
	s.recordDayVote(b.ID, "Alice")
	s.mu.Unlock()

	got, ok := s.bots.Get(b.ID)
	require.True(t, ok)
	require.Len(t, got.Memory.Suspicions, 1)
	assert.Equal(t, "Alice", got.Memory.Suspicions[0].Target)
	assert.Contains(t, got.Memory.Suspicions[0].Reason, "day 1")
}

func TestTwoPlayerGameWithBotResolvesToMafiaWin(t *testing.T) {
	s, sched, _ := newTestSession(t, 17)
	ids := joinAll(t, s, "Alice")
	require.NoError(t, s.Start(1, 1))

	snap := s.Snapshot()
	require.Len(t, snap.Players, 2)
	botName := ""
	for _, p := range snap.Players {
		if p.Name != "Alice" {
			botName = p.Name
		}
	}
	require.NotEmpty(t, botName)

	// introduction: the human speaks, then the bot generates its greeting.
	// A mafia bot may resolve the night asynchronously right away.
	s.StartSpeak(ids["Alice"])
	sched.drain()
	require.Contains(t, []models.Phase{models.PhaseNight, models.PhaseFinished}, s.Phase())

	// whichever side holds mafia, the two-player game ends in a mafia win
	if role, _ := s.RoleOf(ids["Alice"]); role == models.RoleMafia {
		s.NightAction(ids["Alice"], botName)
	}
	require.Eventually(t, func() bool {
		sched.drain()
		return s.Phase() == models.PhaseFinished
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "The mafia wins!", lastLogText(s))
}

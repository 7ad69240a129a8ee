package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNightReady(t *testing.T) {
	n := NewNightActions()
	assert.False(t, n.Ready(1, true, true))

	n.SubmitMafia("M", "X", false)
	assert.False(t, n.Ready(1, true, true))

	n.SubmitDoctor("D", "Y")
	assert.False(t, n.Ready(1, true, true))

	n.SubmitDetective("I", "Z")
	assert.True(t, n.Ready(1, true, true))

	// dead role holders are not waited for
	n.Reset()
	n.SubmitMafia("M", "X", false)
	assert.True(t, n.Ready(1, false, false))
}

func TestConsensusSingleMafiaIsFinal(t *testing.T) {
	n := NewNightActions()
	n.SubmitMafia("M", "X", false)
	assert.Equal(t, "X", n.Consensus(1, rand.New(rand.NewSource(1))))
}

func TestConsensusWaitsForAllVotes(t *testing.T) {
	n := NewNightActions()
	n.SubmitMafia("M1", "X", true)
	assert.Equal(t, "", n.Consensus(2, rand.New(rand.NewSource(1))))
}

func TestConsensusFirstHumanWinsRegardlessOfOrder(t *testing.T) {
	// human submits first, bot second
	n := NewNightActions()
	n.SubmitMafia("H", "A", true)
	n.SubmitMafia("B", "Z", false)
	assert.Equal(t, "A", n.Consensus(2, rand.New(rand.NewSource(1))))

	// bot submits first, human second: the human still decides
	n = NewNightActions()
	n.SubmitMafia("B", "Z", false)
	n.SubmitMafia("H", "A", true)
	assert.Equal(t, "A", n.Consensus(2, rand.New(rand.NewSource(1))))
}

func TestConsensusEarliestOfTwoHumans(t *testing.T) {
	n := NewNightActions()
	n.SubmitMafia("H1", "A", true)
	n.SubmitMafia("H2", "B", true)
	assert.Equal(t, "A", n.Consensus(2, rand.New(rand.NewSource(1))))
}

func TestConsensusResubmissionKeepsPriority(t *testing.T) {
	n := NewNightActions()
	n.SubmitMafia("H1", "A", true)
	n.SubmitMafia("H2", "B", true)
	// H2 changes their mind; H1 still submitted first
	n.SubmitMafia("H2", "C", true)
	assert.Equal(t, "A", n.Consensus(2, rand.New(rand.NewSource(1))))

	votes := n.MafiaVotes()
	require.Len(t, votes, 2)
	assert.Equal(t, "C", votes[1].Target)
}

func TestConsensusAllBotsPicksAmongSubmittedTargets(t *testing.T) {
	n := NewNightActions()
	n.SubmitMafia("B1", "X", false)
	n.SubmitMafia("B2", "Y", false)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		got := n.Consensus(2, rng)
		assert.Contains(t, []string{"X", "Y"}, got)
	}
}

func TestMafiaVotesPreserveSubmissionOrder(t *testing.T) {
	n := NewNightActions()
	n.SubmitMafia("B1", "X", false)
	n.SubmitMafia("B2", "Y", false)
	n.SubmitMafia("B1", "Z", false)

	votes := n.MafiaVotes()
	require.Len(t, votes, 2)
	assert.Equal(t, "B1", votes[0].From)
	assert.Equal(t, "Z", votes[0].Target)
	assert.Equal(t, "B2", votes[1].From)
}

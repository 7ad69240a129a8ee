package game

import (
	"math/rand"

	"github.com/antonkh/mafia-arena/internal/models"
)

type nightVote struct {
	from   string
	target string
	human  bool
	seq    int // order of first submission; resubmission keeps it
}

// NightActions collects the concurrent covert submissions of one night.
// Storage is last-write-wins per submitter: resubmitting overwrites the
// target, never appends a duplicate.
type NightActions struct {
	mafia     []*nightVote
	doctor    *models.VoteEntry
	detective *models.VoteEntry
	nextSeq   int
}

// NewNightActions returns an empty submission set.
func NewNightActions() *NightActions {
	return &NightActions{}
}

// Reset clears every submission.
func (n *NightActions) Reset() {
	n.mafia = nil
	n.doctor = nil
	n.detective = nil
	n.nextSeq = 0
}

// SubmitMafia records or overwrites one mafia member's kill vote.
func (n *NightActions) SubmitMafia(from, target string, human bool) {
	for _, v := range n.mafia {
		if v.from == from {
			v.target = target
			return
		}
	}
	n.mafia = append(n.mafia, &nightVote{from: from, target: target, human: human, seq: n.nextSeq})
	n.nextSeq++
}

// SubmitDoctor records or overwrites the doctor's save target.
func (n *NightActions) SubmitDoctor(from, target string) {
	n.doctor = &models.VoteEntry{From: from, Target: target}
}

// SubmitDetective records or overwrites the detective's check target.
func (n *NightActions) SubmitDetective(from, target string) {
	n.detective = &models.VoteEntry{From: from, Target: target}
}

// MafiaVotes returns the current kill votes in original submission order.
func (n *NightActions) MafiaVotes() []models.VoteEntry {
	out := make([]models.VoteEntry, 0, len(n.mafia))
	for _, v := range n.mafia {
		out = append(out, models.VoteEntry{From: v.from, Target: v.target})
	}
	return out
}

// DoctorTarget returns the doctor's submitted target, "" if none.
func (n *NightActions) DoctorTarget() string {
	if n.doctor == nil {
		return ""
	}
	return n.doctor.Target
}

// DetectiveTarget returns the detective's submitted target, "" if none.
func (n *NightActions) DetectiveTarget() string {
	if n.detective == nil {
		return ""
	}
	return n.detective.Target
}

// Ready reports whether the night can resolve: every living mafia member
// has a vote recorded, and the doctor and detective have submitted if they
// are alive.
func (n *NightActions) Ready(mafiaAlive int, doctorAlive, detectiveAlive bool) bool {
	if len(n.mafia) < mafiaAlive {
		return false
	}
	if doctorAlive && n.doctor == nil {
		return false
	}
	if detectiveAlive && n.detective == nil {
		return false
	}
	return true
}

// Consensus resolves the mafia's group choice into one target.
//
// Zero living mafia means no kill. A single mafia member's vote is final.
// With two or more, the first human submission (by original submission
// order) wins; an all-bot mafia picks uniformly among the submitted targets,
// repeats included. Returns "" while votes are still missing.
func (n *NightActions) Consensus(mafiaAlive int, rng *rand.Rand) string {
	if mafiaAlive == 0 || len(n.mafia) == 0 {
		return ""
	}
	if mafiaAlive == 1 {
		return n.mafia[0].target
	}
	if len(n.mafia) < mafiaAlive {
		return ""
	}

	var firstHuman *nightVote
	for _, v := range n.mafia {
		if v.human && (firstHuman == nil || v.seq < firstHuman.seq) {
			firstHuman = v
		}
	}
	if firstHuman != nil {
		return firstHuman.target
	}

	targets := make([]string, len(n.mafia))
	for i, v := range n.mafia {
		targets[i] = v.target
	}
	return targets[rng.Intn(len(targets))]
}

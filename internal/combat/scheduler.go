package combat

import "sort"

// TurnScheduler maintains the ordered participant list, the turn pointer and
// the round counter of an encounter.
type TurnScheduler struct {
	enc *Encounter
}

// AddParticipant inserts p and re-sorts by initiative, highest first. Ties
// keep their prior relative order. The turn index is not adjusted.
func (s *TurnScheduler) AddParticipant(p *Participant) {
	s.enc.Participants = append(s.enc.Participants, p)
	s.Resort()
}

// Resort re-applies initiative order after an initiative changed.
func (s *TurnScheduler) Resort() {
	sort.SliceStable(s.enc.Participants, func(i, j int) bool {
		return s.enc.Participants[i].Initiative > s.enc.Participants[j].Initiative
	})
}

// Advance moves to the next living participant. Wrapping past the end of the
// list starts a new round and refreshes every participant's reaction. If no
// participant is alive the pointer resets to 0 and the round is unchanged.
func (s *TurnScheduler) Advance() {
	if len(s.enc.Participants) == 0 {
		s.enc.CurrentTurnIndex = 0
		return
	}
	s.skipToLiving(s.enc.CurrentTurnIndex)
}

// EnsureCurrentAlive moves the pointer forward only when it rests on a
// participant that is no longer alive. Calling it twice is the same as once.
func (s *TurnScheduler) EnsureCurrentAlive() {
	n := len(s.enc.Participants)
	if n == 0 {
		s.enc.CurrentTurnIndex = 0
		return
	}
	start := s.enc.CurrentTurnIndex
	if start >= 0 && start < n && s.enc.Participants[start].IsAlive() {
		return
	}
	if start < 0 || start >= n {
		start = -1
	}
	s.skipToLiving(start)
}

// Current returns the participant whose turn it is.
func (s *TurnScheduler) Current() *Participant {
	return s.enc.Current()
}

func (s *TurnScheduler) skipToLiving(from int) {
	parts := s.enc.Participants
	n := len(parts)
	idx := from
	wrapped := false
	for i := 0; i < n; i++ {
		idx++
		if idx >= n {
			idx = 0
			wrapped = true
		}
		candidate := parts[idx]
		if !candidate.IsAlive() {
			continue
		}
		if wrapped {
			s.startRound()
		}
		s.enc.CurrentTurnIndex = idx
		candidate.resetTurnEconomy()
		return
	}
	s.enc.CurrentTurnIndex = 0
}

func (s *TurnScheduler) startRound() {
	s.enc.Round++
	for _, p := range s.enc.Participants {
		p.ReactionUsed = false
	}
}

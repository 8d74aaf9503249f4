package sciprog

import "errors"

var (
	// ErrMSBNotFound means no MSB matched a checksum even after
	// suffix-stripping resolution.
	ErrMSBNotFound = errors.New("msb not found")

	// ErrMSBRemoved means the target MSB has already been removed or
	// exhausted. Accept is strict: decrementing past zero is refused
	// rather than corrupting the counter.
	ErrMSBRemoved = errors.New("msb already removed")

	// ErrChoiceExhausted means the MSB sits in a survey container whose
	// choice budget has reached zero; no further acceptance is permitted
	// in that group.
	ErrChoiceExhausted = errors.New("survey choice budget exhausted")
)

// Accept records one observation of the MSB identified by sum: the
// remaining counter is decremented and the consequences cascade through the
// enclosing containers, innermost first.
//
// An accept inside an OR folder decides the winner immediately, even while
// the winner has repeats left: losing sibling subtrees are struck out, all
// children are relocated to the OR's parent, and the OR dissolves. An AND
// folder dissolves once everything beneath it is exhausted. A survey
// container spends one unit of its choose budget; at zero the remaining
// alternatives are struck out.
func (p *Program) Accept(sum string) (MSB, error) {
	id, ok := p.resolve(sum)
	if !ok {
		return MSB{}, ErrMSBNotFound
	}
	n := p.node(id)
	if n.remaining <= 0 {
		return MSB{}, ErrMSBRemoved
	}
	if p.chooseSpent(id) {
		return MSB{}, ErrChoiceExhausted
	}
	n.remaining--
	p.cascade(id)
	p.LocateMSBs()
	return p.msbView(id), nil
}

// Undo reverses the counter effect of a previous accept: remaining is
// incremented by one. Container structure dissolved by the accept is not
// reconstructed; an OR folder that collapsed stays collapsed. This
// asymmetry is deliberate.
func (p *Program) Undo(sum string) (MSB, error) {
	id, ok := p.resolve(sum)
	if !ok {
		return MSB{}, ErrMSBNotFound
	}
	p.node(id).remaining++
	p.LocateMSBs()
	return p.msbView(id), nil
}

// Complete marks the MSB fully done regardless of repeats left: remaining
// is forced negative, preserving its magnitude for listings, and the same
// container cascade as Accept runs. Completing an already-removed MSB is a
// no-op on the counter, making the operation idempotent.
func (p *Program) Complete(sum string) (MSB, error) {
	id, ok := p.resolve(sum)
	if !ok {
		return MSB{}, ErrMSBNotFound
	}
	n := p.node(id)
	if n.remaining < 0 {
		// Already removed: nothing changed, so there is nothing new for
		// the containers to resolve. Skipping the cascade keeps repeated
		// completes from spending a survey's choose budget twice.
		return p.msbView(id), nil
	}
	if n.remaining == 0 {
		n.remaining = -1
	} else {
		n.remaining = -n.remaining
	}
	p.cascade(id)
	p.LocateMSBs()
	return p.msbView(id), nil
}

// chooseSpent reports whether any enclosing survey container has no choice
// budget left.
func (p *Program) chooseSpent(msb NodeID) bool {
	for cur := p.node(msb).parent; cur != NoNode; cur = p.node(cur).parent {
		n := p.node(cur)
		if n.kind == KindSurvey && n.choose <= 0 {
			return true
		}
	}
	return false
}

// cascade applies container consequences along the accepted MSB's ancestor
// chain, innermost to outermost. A dissolve reparents the chain, so each
// step captures the next ancestor before acting. Containers off the
// ancestor path are left alone even if a strike-out exhausted them; only
// the observed lineage resolves.
func (p *Program) cascade(msb NodeID) {
	cur := p.node(msb).parent
	for cur != NoNode {
		next := p.node(cur).parent
		switch p.node(cur).kind {
		case KindSurvey:
			p.spendChoice(cur, msb)
		case KindOrFolder:
			p.collapseOr(cur, msb)
		case KindAndFolder:
			if p.exhausted(cur) {
				p.flatten(cur)
			}
		}
		cur = next
	}
}

// collapseOr resolves an OR folder in favour of the branch containing the
// accepted MSB. Every other child subtree is struck out, then all children
// (winner and struck-out losers alike) are spliced into the OR's parent so
// removed MSBs stay reachable for listings and undo. Each MSB formerly
// under the OR loses the corresponding trailing 'O' from its checksum.
func (p *Program) collapseOr(or, accepted NodeID) {
	winner := NoNode
	for _, c := range p.node(or).children {
		if p.contains(c, accepted) {
			winner = c
			break
		}
	}
	if winner == NoNode {
		panic("sciprog: accepted msb not under its OR folder")
	}
	for _, c := range p.node(or).children {
		if c != winner {
			p.removeActive(c)
		}
	}
	p.flatten(or)
}

// spendChoice applies survey semantics: one unit of the choose budget is
// spent; when the budget reaches zero every other member of the group is
// struck out. Surveys never flatten; the container and its counter remain
// visible in the serialized program.
func (p *Program) spendChoice(survey, accepted NodeID) {
	s := p.node(survey)
	if s.choose > 0 {
		s.choose--
	}
	if s.choose > 0 {
		return
	}
	p.walk(survey, func(id NodeID) {
		n := p.node(id)
		if n.kind == KindMSB && id != accepted && n.remaining > 0 {
			n.remaining = -n.remaining
		}
	})
}

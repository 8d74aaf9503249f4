package sciprog

import (
	"fmt"
	"strings"
)

// Program is a science program: a forest of MSBs and logical containers,
// held in an arena and addressed by NodeID, plus a checksum index over the
// current tree. Programs are not safe for concurrent mutation; callers
// serialize operations, normally behind a database transaction.
type Program struct {
	Name      string
	Telescope string

	nodes []node
	root  NodeID
	index map[string]NodeID
}

// New creates an empty program with a root folder.
func New(name, telescope string) *Program {
	p := &Program{
		Name:      name,
		Telescope: telescope,
		index:     map[string]NodeID{},
	}
	p.root = p.add(KindObsFolder, NoNode)
	return p
}

// Root returns the root folder of the program.
func (p *Program) Root() NodeID {
	return p.root
}

func (p *Program) node(id NodeID) *node {
	return &p.nodes[id]
}

func (p *Program) add(kind Kind, parent NodeID) NodeID {
	id := NodeID(len(p.nodes))
	p.nodes = append(p.nodes, node{kind: kind, parent: parent})
	if parent != NoNode {
		pn := p.node(parent)
		pn.children = append(pn.children, id)
	}
	return id
}

// AddFolder appends a container of the given kind to parent and returns its
// ID. For surveys use AddSurvey so the choose counter is set.
func (p *Program) AddFolder(parent NodeID, kind Kind) NodeID {
	if kind == KindMSB {
		panic("sciprog: AddFolder called with KindMSB")
	}
	return p.add(kind, parent)
}

// AddSurvey appends a survey container with the given choose counter.
func (p *Program) AddSurvey(parent NodeID, choose int) NodeID {
	id := p.add(KindSurvey, parent)
	p.node(id).choose = choose
	return id
}

// AddMSB appends a leaf MSB and refreshes the checksum index.
func (p *Program) AddMSB(parent NodeID, title string, remaining int, obs ...Obs) NodeID {
	return p.AddConstrainedMSB(parent, title, remaining, nil, obs...)
}

// AddConstrainedMSB appends a leaf MSB carrying site-quality constraints.
func (p *Program) AddConstrainedMSB(parent NodeID, title string, remaining int, quality *SiteQuality, obs ...Obs) NodeID {
	id := p.add(KindMSB, parent)
	n := p.node(id)
	n.title = title
	n.remaining = remaining
	n.obs = obs
	n.quality = quality
	n.base = contentChecksum(title, quality, obs)
	p.LocateMSBs()
	return id
}

// LocateMSBs rebuilds the checksum index from the current tree. It must run
// after any structural change so lookups see current checksums. Duplicate
// checksums keep the first occurrence in document order; Validate reports
// them.
func (p *Program) LocateMSBs() {
	p.index = make(map[string]NodeID)
	p.walk(p.root, func(id NodeID) {
		if p.node(id).kind != KindMSB {
			return
		}
		sum := p.checksumOf(id)
		if _, dup := p.index[sum]; !dup {
			p.index[sum] = id
		}
	})
}

// walk visits the subtree rooted at id in document (preorder) order.
func (p *Program) walk(id NodeID, visit func(NodeID)) {
	visit(id)
	for _, c := range p.node(id).children {
		p.walk(c, visit)
	}
}

// contains reports whether sub is an ancestor of target or target itself.
func (p *Program) contains(sub, target NodeID) bool {
	for cur := target; cur != NoNode; cur = p.node(cur).parent {
		if cur == sub {
			return true
		}
	}
	return false
}

// MSBs returns views of every MSB in the program in document order,
// including removed ones, which report a non-positive remaining counter.
func (p *Program) MSBs() []MSB {
	var out []MSB
	p.walk(p.root, func(id NodeID) {
		if p.node(id).kind == KindMSB {
			out = append(out, p.msbView(id))
		}
	})
	return out
}

// ActiveMSBs returns views of the MSBs still awaiting observation.
func (p *Program) ActiveMSBs() []MSB {
	var out []MSB
	for _, m := range p.MSBs() {
		if !m.Removed() {
			out = append(out, m)
		}
	}
	return out
}

// Choose returns the current choose counter of a survey container.
func (p *Program) Choose(survey NodeID) int {
	n := p.node(survey)
	if n.kind != KindSurvey {
		panic(fmt.Sprintf("sciprog: Choose on %s node", n.kind))
	}
	return n.choose
}

// Detached reports whether a container has been dissolved out of the tree.
func (p *Program) Detached(id NodeID) bool {
	return p.node(id).detached
}

func (p *Program) msbView(id NodeID) MSB {
	n := p.node(id)
	return MSB{
		ID:        id,
		Title:     n.title,
		Remaining: n.remaining,
		Checksum:  p.checksumOf(id),
		Obs:       n.obs,
		Quality:   n.quality,
	}
}

// Summary renders a one-line-per-MSB listing of the program. Removed MSBs
// show their negative counter, preserving the original magnitude.
func (p *Program) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Science program %s (%s)\n", p.Name, p.Telescope)
	for _, m := range p.MSBs() {
		mark := ""
		if m.Removed() {
			mark = "  [removed]"
		}
		fmt.Fprintf(&b, "  %-36s %-24s remaining %3d%s\n", m.Checksum, m.Title, m.Remaining, mark)
	}
	return b.String()
}

// flatten splices a container's children into its parent at the container's
// position and detaches the container. Descendant MSB checksums shorten
// because the container no longer appears in their ancestry.
func (p *Program) flatten(folder NodeID) {
	f := p.node(folder)
	parent := f.parent
	if parent == NoNode {
		panic("sciprog: flatten of root folder")
	}
	pn := p.node(parent)
	at := -1
	for i, c := range pn.children {
		if c == folder {
			at = i
			break
		}
	}
	if at < 0 {
		panic("sciprog: folder missing from parent child list")
	}

	repl := make([]NodeID, 0, len(pn.children)-1+len(f.children))
	repl = append(repl, pn.children[:at]...)
	repl = append(repl, f.children...)
	repl = append(repl, pn.children[at+1:]...)
	for _, c := range f.children {
		p.node(c).parent = parent
	}
	pn.children = repl

	f.children = nil
	f.parent = NoNode
	f.detached = true
}

// removeActive strikes out every still-active MSB in the subtree by negating
// its remaining counter. Nodes are not deleted, so checksums stay resolvable
// and listings can show the removed value.
func (p *Program) removeActive(sub NodeID) {
	p.walk(sub, func(id NodeID) {
		n := p.node(id)
		if n.kind == KindMSB && n.remaining > 0 {
			n.remaining = -n.remaining
		}
	})
}

// exhausted reports whether no MSB in the subtree has observations left.
func (p *Program) exhausted(sub NodeID) bool {
	done := true
	p.walk(sub, func(id NodeID) {
		n := p.node(id)
		if n.kind == KindMSB && n.remaining > 0 {
			done = false
		}
	})
	return done
}

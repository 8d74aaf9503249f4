package sciprog

// NodeID addresses a node within a Program's arena.
type NodeID int

// NoNode is the null node reference.
const NoNode NodeID = -1

// Kind discriminates the node types of a science program tree.
type Kind uint8

const (
	// KindObsFolder is a plain ordered grouping with no scheduling logic.
	KindObsFolder Kind = iota
	// KindOrFolder groups mutually exclusive alternatives.
	KindOrFolder
	// KindAndFolder groups children that must all be observed.
	KindAndFolder
	// KindSurvey is a choose-K-of-N grouping of alternative MSBs.
	KindSurvey
	// KindMSB is a leaf minimum schedulable block.
	KindMSB
)

// String returns the element name used for the kind in program documents.
func (k Kind) String() string {
	switch k {
	case KindObsFolder:
		return "SpObsFolder"
	case KindOrFolder:
		return "SpOR"
	case KindAndFolder:
		return "SpAND"
	case KindSurvey:
		return "SpSurveyContainer"
	case KindMSB:
		return "SpMSB"
	}
	return "unknown"
}

// tag returns the ancestry character a container of this kind contributes
// to the checksums of MSBs beneath it, or 0 for plain folders.
func (k Kind) tag() byte {
	switch k {
	case KindOrFolder:
		return 'O'
	case KindAndFolder:
		return 'A'
	case KindSurvey:
		return 'S'
	}
	return 0
}

// Obs is a single observation within an MSB. Only the fields needed for
// serialization and scheduling queries are modelled here.
type Obs struct {
	Instrument string
	Target     string
	Elapsed    float64 // estimated duration in seconds
}

// SiteQuality holds the observing-condition constraints attached to an MSB.
// Zero-valued limits mean unconstrained.
type SiteQuality struct {
	TauMin    float64 // 225 GHz zenith opacity, lower bound
	TauMax    float64 // 225 GHz zenith opacity, upper bound
	SeeingMax float64 // arcsec
	CloudMax  float64 // fraction of sky
}

// MSB is a read-only view of a leaf node. The checksum includes the
// ancestry tag characters current at the time the view was taken.
type MSB struct {
	ID        NodeID
	Title     string
	Remaining int
	Checksum  string
	Obs       []Obs
	Quality   *SiteQuality
}

// Removed reports whether the MSB has been removed or exhausted.
func (m MSB) Removed() bool {
	return m.Remaining <= 0
}

// node is a component of the program forest. Folders use children; MSBs use
// the leaf payload fields; surveys additionally carry the choose counter.
// Nodes are never deleted from the arena: a dissolved container is detached
// from the tree but its slot remains valid.
type node struct {
	kind     Kind
	parent   NodeID
	children []NodeID
	detached bool

	// MSB payload
	title     string
	remaining int
	base      string // content checksum, hex; excludes remaining and ancestry
	obs       []Obs
	quality   *SiteQuality

	// survey payload
	choose int
}

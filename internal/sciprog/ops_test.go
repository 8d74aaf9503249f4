package sciprog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orFixture builds the canonical program used by the acceptance tests:
// a free-standing MSB A plus an OR folder holding alternatives B and C.
func orFixture(t *testing.T) (p *Program, a, b, c MSB, or NodeID) {
	t.Helper()
	p = New("M23BU042", "JCMT")
	aID := p.AddMSB(p.Root(), "A", 10, Obs{Instrument: "SCUBA-2", Target: "NGC 7027", Elapsed: 1200})
	or = p.AddFolder(p.Root(), KindOrFolder)
	bID := p.AddMSB(or, "B", 10, Obs{Instrument: "SCUBA-2", Target: "CRL 618", Elapsed: 900})
	cID := p.AddMSB(or, "C", 10, Obs{Instrument: "HARP", Target: "W75N", Elapsed: 1800})
	return p, p.msbView(aID), p.msbView(bID), p.msbView(cID), or
}

// TestAcceptDecrementsOutsideContainers verifies a plain accept only
// touches the target counter.
func TestAcceptDecrementsOutsideContainers(t *testing.T) {
	p, a, b, c, or := orFixture(t)

	got, err := p.Accept(a.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Remaining)
	assert.Equal(t, a.Checksum, got.Checksum, "checksum unchanged by a counter decrement")

	// Structure untouched: B and C still carry their OR ancestry tag.
	assert.False(t, p.Detached(or))
	gotB, ok := p.FindByChecksum(b.Checksum)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(gotB.Checksum, "O"))
	gotC, ok := p.FindByChecksum(c.Checksum)
	require.True(t, ok)
	assert.Equal(t, 10, gotC.Remaining)
}

// TestAcceptORExclusivity verifies that accepting one alternative strikes
// out its siblings, relocates the survivors and dissolves the OR folder.
func TestAcceptORExclusivity(t *testing.T) {
	p, _, b, c, or := orFixture(t)

	got, err := p.Accept(b.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Remaining)
	assert.NotContains(t, got.Checksum, "O", "relocated MSB loses its OR ancestry tag")

	assert.True(t, p.Detached(or), "decided OR folder leaves the tree")

	// The losing alternative keeps its magnitude, negated.
	gotC, ok := p.FindByChecksum(c.Checksum)
	require.True(t, ok, "removed sibling stays resolvable via its stale checksum")
	assert.Equal(t, -10, gotC.Remaining)
	assert.True(t, gotC.Removed())

	// Traversal no longer passes through the OR folder: everything now
	// hangs off the root.
	var titles []string
	for _, m := range p.MSBs() {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
}

// TestAcceptRemovedIsStrict verifies the documented policy for the spec's
// open question: decrementing an already-removed MSB is refused.
func TestAcceptRemovedIsStrict(t *testing.T) {
	p, _, b, c, _ := orFixture(t)

	_, err := p.Accept(b.Checksum)
	require.NoError(t, err)

	_, err = p.Accept(c.Checksum)
	assert.ErrorIs(t, err, ErrMSBRemoved)

	gotC, ok := p.FindByChecksum(c.Checksum)
	require.True(t, ok)
	assert.Equal(t, -10, gotC.Remaining, "failed accept must not corrupt the counter")
}

// TestAcceptUnknownChecksum verifies the not-found result after the suffix
// alphabet is exhausted.
func TestAcceptUnknownChecksum(t *testing.T) {
	p, _, _, _, _ := orFixture(t)

	_, err := p.Accept("deadbeefOA")
	assert.ErrorIs(t, err, ErrMSBNotFound)

	_, ok := p.FindByChecksum("deadbeef")
	assert.False(t, ok)
}

// TestAndFolderFlattensWhenExhausted verifies the AND trigger: nothing
// moves until every member is exhausted, then the folder dissolves.
func TestAndFolderFlattensWhenExhausted(t *testing.T) {
	p := New("M23BU042", "JCMT")
	and := p.AddFolder(p.Root(), KindAndFolder)
	d := p.msbView(p.AddMSB(and, "D", 1, Obs{Instrument: "SCUBA-2", Target: "G34.3", Elapsed: 600}))
	e := p.msbView(p.AddMSB(and, "E", 1, Obs{Instrument: "HARP", Target: "DR21", Elapsed: 600}))

	require.True(t, strings.HasSuffix(d.Checksum, "A"))

	got, err := p.Accept(d.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Remaining)
	assert.False(t, p.Detached(and), "AND holds while a sibling is active")
	assert.True(t, strings.HasSuffix(got.Checksum, "A"))

	_, err = p.Accept(e.Checksum)
	require.NoError(t, err)
	assert.True(t, p.Detached(and))

	gotD, ok := p.FindByChecksum(d.Checksum)
	require.True(t, ok, "stale checksum with trailing A still resolves")
	assert.NotContains(t, gotD.Checksum, "A")
}

// TestChecksumResolutionTolerance reproduces the two-event drift case: an
// MSB whose checksum carried the suffix "OA" must still resolve by its
// original string after both containers dissolve in one cascade.
func TestChecksumResolutionTolerance(t *testing.T) {
	p := New("M23BU042", "JCMT")
	or := p.AddFolder(p.Root(), KindOrFolder)
	and := p.AddFolder(or, KindAndFolder)
	m := p.msbView(p.AddMSB(and, "M", 1, Obs{Instrument: "SCUBA-2", Target: "IC 348", Elapsed: 300}))
	// N was exhausted in an earlier session; stored programs keep such
	// counters at zero.
	p.AddMSB(and, "N", 0, Obs{Instrument: "SCUBA-2", Target: "L1448", Elapsed: 300})
	x := p.msbView(p.AddMSB(or, "X", 5, Obs{Instrument: "HARP", Target: "S140", Elapsed: 2400}))

	require.True(t, strings.HasSuffix(m.Checksum, "OA"))

	_, err := p.Accept(m.Checksum)
	require.NoError(t, err)

	// M's exhaustion empties the AND, which flattens; the accept also
	// decides the OR, which flattens in turn.
	assert.True(t, p.Detached(and))
	assert.True(t, p.Detached(or))

	gotM, ok := p.FindByChecksum(m.Checksum)
	require.True(t, ok, "original X+\"OA\" checksum must resolve after both events")
	assert.Equal(t, 0, gotM.Remaining)
	assert.NotContains(t, gotM.Checksum, "O")
	assert.NotContains(t, gotM.Checksum, "A")

	gotX, ok := p.FindByChecksum(x.Checksum)
	require.True(t, ok)
	assert.Equal(t, -5, gotX.Remaining, "losing OR branch is struck out")
}

// TestAcceptKeepsNestedAndSurvivors verifies that an OR decision relocates
// still-active members of a nested AND rather than striking them out.
func TestAcceptKeepsNestedAndSurvivors(t *testing.T) {
	p := New("M23BU042", "JCMT")
	or := p.AddFolder(p.Root(), KindOrFolder)
	and := p.AddFolder(or, KindAndFolder)
	m := p.msbView(p.AddMSB(and, "M", 2, Obs{Instrument: "SCUBA-2", Target: "IC 348", Elapsed: 300}))
	n := p.msbView(p.AddMSB(and, "N", 2, Obs{Instrument: "SCUBA-2", Target: "L1448", Elapsed: 300}))
	x := p.msbView(p.AddMSB(or, "X", 5, Obs{Instrument: "HARP", Target: "S140", Elapsed: 2400}))

	_, err := p.Accept(m.Checksum)
	require.NoError(t, err)

	assert.True(t, p.Detached(or))
	assert.False(t, p.Detached(and), "active AND branch survives the OR decision")

	gotN, ok := p.FindByChecksum(n.Checksum)
	require.True(t, ok)
	assert.Equal(t, 2, gotN.Remaining, "AND co-survivor keeps its counter")
	assert.True(t, strings.HasSuffix(gotN.Checksum, "A"), "only the OR tag is stripped")

	gotX, ok := p.FindByChecksum(x.Checksum)
	require.True(t, ok)
	assert.Equal(t, -5, gotX.Remaining)
}

// TestSurveyChooseOne verifies choose-1 semantics: accepting one member
// spends the budget and strikes out the alternative.
func TestSurveyChooseOne(t *testing.T) {
	p := New("M23BU042", "JCMT")
	survey := p.AddSurvey(p.Root(), 1)
	j := p.msbView(p.AddMSB(survey, "J", 2, Obs{Instrument: "SCUBA-2", Target: "field-1", Elapsed: 600}))
	j2 := p.msbView(p.AddMSB(survey, "J2", 2, Obs{Instrument: "SCUBA-2", Target: "field-2", Elapsed: 600}))

	require.True(t, strings.HasSuffix(j.Checksum, "S"))

	got, err := p.Accept(j.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Remaining)
	assert.Equal(t, 0, p.Choose(survey))

	gotJ2, ok := p.FindByChecksum(j2.Checksum)
	require.True(t, ok)
	assert.Equal(t, -2, gotJ2.Remaining)

	// Surveys do not flatten; the container and its spent budget remain.
	assert.False(t, p.Detached(survey))
	doc, err := p.WriteString()
	require.NoError(t, err)
	assert.Contains(t, doc, "<choose>0</choose>")

	// No further acceptance in the group once the budget is spent.
	_, err = p.Accept(j.Checksum)
	assert.ErrorIs(t, err, ErrChoiceExhausted)
	_, err = p.Accept(j2.Checksum)
	assert.ErrorIs(t, err, ErrMSBRemoved)
}

// TestSurveyChooseTwo verifies the budget is spent one accept at a time.
func TestSurveyChooseTwo(t *testing.T) {
	p := New("M23BU042", "JCMT")
	survey := p.AddSurvey(p.Root(), 2)
	j := p.msbView(p.AddMSB(survey, "J", 1, Obs{Instrument: "SCUBA-2", Target: "field-1", Elapsed: 600}))
	k := p.msbView(p.AddMSB(survey, "K", 1, Obs{Instrument: "SCUBA-2", Target: "field-2", Elapsed: 600}))
	l := p.msbView(p.AddMSB(survey, "L", 1, Obs{Instrument: "SCUBA-2", Target: "field-3", Elapsed: 600}))

	_, err := p.Accept(j.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Choose(survey))

	gotK, ok := p.FindByChecksum(k.Checksum)
	require.True(t, ok)
	assert.Equal(t, 1, gotK.Remaining, "budget not yet spent, no strike-out")

	_, err = p.Accept(k.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Choose(survey))

	gotL, ok := p.FindByChecksum(l.Checksum)
	require.True(t, ok)
	assert.Equal(t, -1, gotL.Remaining)
}

// TestUndoRestoresCounterOnly verifies the documented asymmetry: undo
// restores the counter but never rebuilds dissolved containers.
func TestUndoRestoresCounterOnly(t *testing.T) {
	p, _, b, c, or := orFixture(t)

	accepted, err := p.Accept(b.Checksum)
	require.NoError(t, err)
	require.Equal(t, 9, accepted.Remaining)
	require.True(t, p.Detached(or))

	undone, err := p.Undo(b.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 10, undone.Remaining)
	assert.NotContains(t, undone.Checksum, "O", "B stays outside the dissolved OR")
	assert.True(t, p.Detached(or), "undo does not resurrect the OR folder")

	gotC, ok := p.FindByChecksum(c.Checksum)
	require.True(t, ok)
	assert.Equal(t, -10, gotC.Remaining, "undo of B does not restore C")
}

// TestUndoRemovedMSB verifies undo is a plain increment even for a removed
// MSB, stepping its counter back toward zero.
func TestUndoRemovedMSB(t *testing.T) {
	p, _, b, c, _ := orFixture(t)

	_, err := p.Accept(b.Checksum)
	require.NoError(t, err)

	undone, err := p.Undo(c.Checksum)
	require.NoError(t, err)
	assert.Equal(t, -9, undone.Remaining)
}

// TestCompleteForcesRemoval verifies complete ignores repeats left and
// preserves the magnitude of the counter.
func TestCompleteForcesRemoval(t *testing.T) {
	p, a, _, _, _ := orFixture(t)

	got, err := p.Complete(a.Checksum)
	require.NoError(t, err)
	assert.Equal(t, -10, got.Remaining)
	assert.True(t, got.Removed())
}

// TestCompleteIsIdempotent verifies a second complete changes nothing,
// including the choose budget of an enclosing survey.
func TestCompleteIsIdempotent(t *testing.T) {
	p := New("M23BU042", "JCMT")
	survey := p.AddSurvey(p.Root(), 2)
	j := p.msbView(p.AddMSB(survey, "J", 3, Obs{Instrument: "SCUBA-2", Target: "field-1", Elapsed: 600}))
	p.AddMSB(survey, "K", 3, Obs{Instrument: "SCUBA-2", Target: "field-2", Elapsed: 600})

	first, err := p.Complete(j.Checksum)
	require.NoError(t, err)
	assert.Equal(t, -3, first.Remaining)
	assert.Equal(t, 1, p.Choose(survey))

	second, err := p.Complete(j.Checksum)
	require.NoError(t, err)
	assert.Equal(t, -3, second.Remaining)
	assert.Equal(t, 1, p.Choose(survey), "repeated complete must not spend the budget again")
}

// TestCompleteCascades verifies complete triggers the same container
// resolution as accept.
func TestCompleteCascades(t *testing.T) {
	p, _, b, c, or := orFixture(t)

	got, err := p.Complete(b.Checksum)
	require.NoError(t, err)
	assert.Equal(t, -10, got.Remaining)
	assert.True(t, p.Detached(or))

	gotC, ok := p.FindByChecksum(c.Checksum)
	require.True(t, ok)
	assert.Equal(t, -10, gotC.Remaining)
}

// TestCompleteZeroRemaining verifies the sentinel for a counter already at
// zero.
func TestCompleteZeroRemaining(t *testing.T) {
	p := New("M23BU042", "JCMT")
	m := p.msbView(p.AddMSB(p.Root(), "M", 0, Obs{Instrument: "SCUBA-2", Target: "IC 348", Elapsed: 300}))

	got, err := p.Complete(m.Checksum)
	require.NoError(t, err)
	assert.Equal(t, -1, got.Remaining)

	again, err := p.Complete(m.Checksum)
	require.NoError(t, err)
	assert.Equal(t, -1, again.Remaining)
}

// TestEndToEndScenario walks the observed fixture: accept a free MSB, then
// accept inside the OR and observe the full set of side effects at once.
func TestEndToEndScenario(t *testing.T) {
	p, a, b, c, or := orFixture(t)

	gotA, err := p.Accept(a.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 9, gotA.Remaining)
	assert.False(t, p.Detached(or), "structure unchanged by the first accept")

	gotB, err := p.Accept(b.Checksum)
	require.NoError(t, err)
	assert.Equal(t, 9, gotB.Remaining)
	assert.Equal(t, strings.TrimSuffix(b.Checksum, "O"), gotB.Checksum)

	gotC, ok := p.FindByChecksum(c.Checksum)
	require.True(t, ok)
	assert.Equal(t, -10, gotC.Remaining)

	active := p.ActiveMSBs()
	require.Len(t, active, 2)
	assert.Equal(t, "A", active[0].Title)
	assert.Equal(t, "B", active[1].Title)
}

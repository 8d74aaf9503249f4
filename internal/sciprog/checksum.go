package sciprog

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
)

// contentChecksum hashes the parts of an MSB that identify it across edits
// to its counters: title, constraints and observations. The remaining
// counter is deliberately excluded so the checksum survives accept/undo.
func contentChecksum(title string, quality *SiteQuality, obs []Obs) string {
	h := md5.New()
	io.WriteString(h, title)
	if quality != nil {
		fmt.Fprintf(h, "|tau=%g:%g|seeing=%g|cloud=%g",
			quality.TauMin, quality.TauMax, quality.SeeingMax, quality.CloudMax)
	}
	for _, o := range obs {
		fmt.Fprintf(h, "|%s|%s|%g", o.Instrument, o.Target, o.Elapsed)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// checksumOf returns the display checksum of an MSB: the content hash plus
// one ancestry tag character per enclosing OR/AND/Survey container, in
// nesting order with the innermost container last. The tag list is derived
// from the current ancestry, so dissolving a container shortens the
// checksums of the MSBs beneath it with no separate bookkeeping.
func (p *Program) checksumOf(id NodeID) string {
	var tags []byte
	for cur := p.node(id).parent; cur != NoNode; cur = p.node(cur).parent {
		if t := p.node(cur).kind.tag(); t != 0 {
			tags = append(tags, t)
		}
	}
	// tags were collected leaf-to-root; reverse to nesting order.
	for i, j := 0, len(tags)-1; i < j; i, j = i+1, j-1 {
		tags[i], tags[j] = tags[j], tags[i]
	}
	return p.node(id).base + string(tags)
}

// isAncestryTag reports whether c belongs to the checksum suffix alphabet.
func isAncestryTag(c byte) bool {
	return c == 'O' || c == 'A' || c == 'S'
}

// resolve finds the MSB for a checksum, tolerating drift: a caller may hold
// a checksum captured before a flattening event shortened it. On an exact
// miss, trailing ancestry characters are stripped one at a time and the
// lookup retried until the suffix alphabet is exhausted.
func (p *Program) resolve(sum string) (NodeID, bool) {
	if id, ok := p.index[sum]; ok {
		return id, true
	}
	for len(sum) > 0 && isAncestryTag(sum[len(sum)-1]) {
		sum = sum[:len(sum)-1]
		if id, ok := p.index[sum]; ok {
			return id, true
		}
	}
	return NoNode, false
}

// FindByChecksum locates an MSB by checksum, applying suffix-stripping
// resolution. The boolean result is false when no MSB matches.
func (p *Program) FindByChecksum(sum string) (MSB, bool) {
	id, ok := p.resolve(sum)
	if !ok {
		return MSB{}, false
	}
	return p.msbView(id), true
}

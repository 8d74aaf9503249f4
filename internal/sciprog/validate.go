package sciprog

import "fmt"

// Finding is a single problem reported by Validate.
type Finding struct {
	Check   string // e.g. "duplicate-checksum"
	Subject string // checksum or title of the offending component
	Message string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Check, f.Subject, f.Message)
}

// Validate checks the structural health of a program document. A clean
// program yields no findings. Corrupted documents are reported rather than
// mutated: the accept/undo/complete layer assumes these invariants hold.
func (p *Program) Validate() []Finding {
	var out []Finding

	seen := map[string]string{}
	p.walk(p.root, func(id NodeID) {
		n := p.node(id)
		switch n.kind {
		case KindMSB:
			sum := p.checksumOf(id)
			if prev, dup := seen[sum]; dup {
				out = append(out, Finding{
					Check:   "duplicate-checksum",
					Subject: sum,
					Message: fmt.Sprintf("MSB %q duplicates checksum of %q", n.title, prev),
				})
			} else {
				seen[sum] = n.title
			}
			if len(n.obs) == 0 {
				out = append(out, Finding{
					Check:   "empty-msb",
					Subject: n.title,
					Message: "MSB has no observations",
				})
			}
		case KindObsFolder, KindOrFolder, KindAndFolder:
			if id != p.root && len(n.children) == 0 {
				out = append(out, Finding{
					Check:   "empty-folder",
					Subject: n.kind.String(),
					Message: "container has no children",
				})
			}
			if n.kind == KindOrFolder && len(n.children) == 1 {
				out = append(out, Finding{
					Check:   "degenerate-or",
					Subject: n.kind.String(),
					Message: "OR folder with a single alternative",
				})
			}
		case KindSurvey:
			if len(n.children) == 0 {
				out = append(out, Finding{
					Check:   "empty-folder",
					Subject: n.kind.String(),
					Message: "survey container has no members",
				})
			}
			if n.choose < 0 {
				out = append(out, Finding{
					Check:   "bad-choose",
					Subject: n.kind.String(),
					Message: fmt.Sprintf("negative choose counter %d", n.choose),
				})
			}
			if n.choose > len(n.children) {
				out = append(out, Finding{
					Check:   "bad-choose",
					Subject: n.kind.String(),
					Message: fmt.Sprintf("choose %d exceeds %d members", n.choose, len(n.children)),
				})
			}
		}
	})
	return out
}

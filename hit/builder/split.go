package builder

import (
	"strings"
)

// hitDraft is the body of one hit under construction, everything after the preamble.
type hitDraft struct {
	body      strings.Builder
	oversized bool
}

func (d *hitDraft) isEmpty() bool {
	return d.body.Len() == 0
}

// oversizedFragment records a fragment which alone exceeded the hit capacity.
type oversizedFragment struct {
	key  string
	size int
}

type splitResult struct {
	drafts    []*hitDraft
	oversized []oversizedFragment
}

// splitter distributes fragments over hit drafts.
//
// States: accumulating into the current draft, or flushing it and opening a new one. A fragment which
// alone exceeds an empty hit is either sliced at atom boundaries (splittable keys) or absorbed into the
// current draft, which is then tagged as oversized. Once a draft absorbed such a fragment, every later
// fragment is appended to that same draft.
type splitter struct {
	preambleLen int
	capacity    int
	isSplit     func(key string) bool
	absorbing   *hitDraft
	result      splitResult
}

// split runs the splitting state machine over the fragments in order.
func (b Builder) split(fragments []QueryFragment) splitResult {
	s := &splitter{
		preambleLen: len(b.preamble),
		capacity:    b.cfg.MaxHitSize - multihitReserve,
		isSplit: func(key string) bool {
			_, ok := b.splittableKeys[key]
			return ok
		},
	}
	s.open()

	for _, fragment := range fragments {
		s.add(fragment)
	}

	return s.finish()
}

func (s *splitter) current() *hitDraft {
	return s.result.drafts[len(s.result.drafts)-1]
}

func (s *splitter) open() *hitDraft {
	draft := &hitDraft{}
	s.result.drafts = append(s.result.drafts, draft)

	return draft
}

// next returns the current draft if it is still empty, otherwise a new one.
func (s *splitter) next() *hitDraft {
	if cur := s.current(); cur.isEmpty() && !cur.oversized {
		return cur
	}

	return s.open()
}

func (s *splitter) fits(draft *hitDraft, n int) bool {
	return s.preambleLen+draft.body.Len()+n <= s.capacity
}

func (s *splitter) add(fragment QueryFragment) {
	text := fragment.String()

	if s.absorbing != nil {
		s.absorbing.body.WriteString(text)
		if s.preambleLen+len(text) > s.capacity {
			s.markOversized(s.absorbing, fragment.parameter.Key(), len(text))
		}
		return
	}

	if cur := s.current(); s.fits(cur, len(text)) {
		cur.body.WriteString(text)
		return
	}

	if s.preambleLen+len(text) <= s.capacity {
		s.next().body.WriteString(text)
		return
	}

	if s.isSplit(fragment.parameter.Key()) {
		s.addSliced(fragment)
		return
	}

	cur := s.current()
	cur.body.WriteString(text)
	s.markOversized(cur, fragment.parameter.Key(), len(text))
	s.absorbing = cur
}

// addSliced packs the fragment's atoms into as many drafts as needed, each chunk re-emitted
// as "&key=atoms". An atom which alone exceeds an empty hit gets its own oversized draft.
func (s *splitter) addSliced(fragment QueryFragment) {
	prefix := "&" + fragment.key + "="
	cur := s.next()

	var chunk strings.Builder
	chunkAtoms := 0

	flush := func() {
		cur.body.WriteString(prefix)
		cur.body.WriteString(chunk.String())
		chunk.Reset()
		chunkAtoms = 0
	}

	for i, atom := range fragment.atoms {
		if chunkAtoms > 0 {
			piece := fragment.joiners[i] + atom
			if s.fits(cur, len(prefix)+chunk.Len()+len(piece)) {
				chunk.WriteString(piece)
				chunkAtoms++
				continue
			}

			flush()
			cur = s.open()
		}

		chunk.WriteString(atom)
		chunkAtoms++

		if !s.fits(cur, len(prefix)+chunk.Len()) {
			flush()
			s.markOversized(cur, fragment.parameter.Key(), len(prefix)+len(atom))
			cur = s.open()
		}
	}

	if chunkAtoms > 0 {
		flush()
	}
}

func (s *splitter) markOversized(draft *hitDraft, key string, size int) {
	draft.oversized = true
	s.result.oversized = append(s.result.oversized, oversizedFragment{key: key, size: size})
}

// finish drops drafts left empty, keeping one if nothing was written at all.
func (s *splitter) finish() splitResult {
	drafts := make([]*hitDraft, 0, len(s.result.drafts))
	for _, draft := range s.result.drafts {
		if !draft.isEmpty() {
			drafts = append(drafts, draft)
		}
	}

	if len(drafts) == 0 {
		drafts = append(drafts, &hitDraft{})
	}

	s.result.drafts = drafts

	return s.result
}

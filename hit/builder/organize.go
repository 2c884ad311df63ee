package builder

import (
	"slices"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

// OrganizeParameters computes the deterministic total order of the snapshot's parameters.
//
// Baseline order: protocol keys (in configured order), then persistent parameters, then volatile
// parameters, each in insertion order. Placement options are then applied in baseline order, each one
// evaluated against the sequence as adjusted so far:
//   - first: to the front of the adjustable region, right after the protocol keys
//   - last: to the trailing block; nothing is ever placed behind it
//   - before/after K: immediately before/after K's current position
//
// Parameters requesting the same placement keep their baseline order. A before/after anchor which is
// absent, a protocol key, or the parameter itself leaves the parameter at its baseline position.
// An anchor inside the trailing block places the parameter at the end of the non-trailing region, an
// anchor inside the first block places it right behind that block.
func (b Builder) OrganizeParameters(snapshot hit.Snapshot) hit.Parameters {
	baseline := append(snapshot.Persistent(), snapshot.Volatile()...)

	byKey := make(map[hit.KeyString]hit.Parameter, len(baseline))
	for _, p := range baseline {
		byKey[p.Key()] = p
	}

	pinned := make(map[hit.KeyString]struct{}, len(b.protocolKeys))
	ordered := make(hit.Parameters, 0, len(baseline))

	for _, key := range b.protocolKeys {
		if _, done := pinned[key]; done {
			continue
		}

		if p, ok := byKey[key]; ok {
			pinned[key] = struct{}{}
			ordered = append(ordered, p)
		}
	}

	adjustable := slices.DeleteFunc(baseline, func(p hit.Parameter) bool {
		_, isPinned := pinned[p.Key()]
		return isPinned
	})

	return append(ordered, place(adjustable)...)
}

// place applies the placement options to the adjustable region.
func place(baseline hit.Parameters) hit.Parameters {
	head := slices.Clone(baseline)
	var tail hit.Parameters

	firstCount := 0
	lastPlacedAfter := make(map[hit.KeyString]hit.KeyString)

	for _, p := range baseline {
		opts := p.Options()

		switch opts.RelativePosition {
		case hit.PositionFirst:
			head = removeKey(head, p.Key())
			head = slices.Insert(head, min(firstCount, len(head)), p)
			firstCount++

		case hit.PositionLast:
			head = removeKey(head, p.Key())
			tail = append(tail, p)

		case hit.PositionBefore, hit.PositionAfter:
			anchor := opts.RelativeParameterKey
			if anchor == p.Key() {
				continue
			}

			anchorInTail := indexOfKey(tail, anchor) >= 0
			if !anchorInTail && indexOfKey(head, anchor) < 0 {
				continue
			}

			head = removeKey(head, p.Key())

			if anchorInTail {
				head = append(head, p)
				continue
			}

			idx := indexOfKey(head, anchor)
			if opts.RelativePosition == hit.PositionBefore {
				head = slices.Insert(head, max(idx, firstCount), p)
				continue
			}

			if previous, ok := lastPlacedAfter[anchor]; ok {
				if prevIdx := indexOfKey(head, previous); prevIdx > idx {
					idx = prevIdx
				}
			}

			head = slices.Insert(head, max(idx+1, firstCount), p)
			lastPlacedAfter[anchor] = p.Key()
		}
	}

	return append(head, tail...)
}

func indexOfKey(params hit.Parameters, key hit.KeyString) int {
	return slices.IndexFunc(params, func(p hit.Parameter) bool { return p.Key() == key })
}

func removeKey(params hit.Parameters, key hit.KeyString) hit.Parameters {
	if idx := indexOfKey(params, key); idx >= 0 {
		return slices.Delete(params, idx, idx+1)
	}

	return params
}

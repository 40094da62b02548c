package matlist

import "fmt"

const (
	FeatureHandicap = "H"
	FeatureSocket   = "S"
)

// Expand builds the per-mat feature strings of a template: every mat of all,
// tagged "H" when it appears in handicap and "S" when it appears in socket.
// handicap and socket must be subsets of all.
func Expand(all, handicap, socket string) ([]Mat, error) {
	allList, err := Parse(all)
	if err != nil {
		return nil, fmt.Errorf("allMats: %w", err)
	}
	handicapList, err := Parse(handicap)
	if err != nil {
		return nil, fmt.Errorf("handicapMats: %w", err)
	}
	socketList, err := Parse(socket)
	if err != nil {
		return nil, fmt.Errorf("socketMats: %w", err)
	}
	if !handicapList.IsSubsetOf(allList) {
		return nil, fmt.Errorf("handicapMats: not a subset of allMats")
	}
	if !socketList.IsSubsetOf(allList) {
		return nil, fmt.Errorf("socketMats: not a subset of allMats")
	}

	out := make([]Mat, 0, allList.Len())
	for _, n := range allList.Numbers() {
		m := Mat{Number: n}
		if handicapList.Contains(n) {
			m.Feature += FeatureHandicap
		}
		if socketList.Contains(n) {
			m.Feature += FeatureSocket
		}
		out = append(out, m)
	}
	return out, nil
}

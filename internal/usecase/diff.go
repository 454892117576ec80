package usecase

import "ExecOrdersMonitor/internal/domain"

// Fingerprints collects the identities of a snapshot for a batched ledger
// lookup.
func Fingerprints(snapshot []domain.Order) []domain.Fingerprint {
	fps := make([]domain.Fingerprint, len(snapshot))
	for i, order := range snapshot {
		fps[i] = order.Fingerprint()
	}
	return fps
}

// SelectCandidates returns the snapshot items that are not in the processed
// set, preserving snapshot order and keeping only the first occurrence of
// each fingerprint. An empty result is a normal outcome.
func SelectCandidates(snapshot []domain.Order, processed map[domain.Fingerprint]bool) []domain.Order {
	seen := make(map[domain.Fingerprint]bool, len(snapshot))

	var candidates []domain.Order
	for _, order := range snapshot {
		fp := order.Fingerprint()
		if seen[fp] || processed[fp] {
			continue
		}
		seen[fp] = true
		candidates = append(candidates, order)
	}
	return candidates
}

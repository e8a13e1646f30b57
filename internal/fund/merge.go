package fund

import (
	"github.com/samber/lo"

	"github.com/mtlprog/fundtrack/internal/domain"
)

// Merge combines the current positions with an incoming batch keyed by ISIN.
// Incoming rows win on conflicts but keep the stored history when they carry
// none. Current positions absent from the batch are kept, incoming-only rows
// are appended in batch order. Only the first
// incoming row per ISIN is used.
func Merge(current, incoming []domain.Position) []domain.Position {
	incoming = lo.UniqBy(incoming, func(p domain.Position) string { return p.ISIN })
	byISIN := lo.SliceToMap(incoming, func(p domain.Position) (string, domain.Position) {
		return p.ISIN, p
	})

	merged := lo.Map(current, func(p domain.Position, _ int) domain.Position {
		in, ok := byISIN[p.ISIN]
		if !ok {
			return p.Clone()
		}
		out := in.Clone()
		if len(out.History) == 0 {
			out.History = p.Clone().History
		}
		return out
	})

	seen := lo.SliceToMap(current, func(p domain.Position) (string, bool) {
		return p.ISIN, true
	})
	added := lo.Filter(incoming, func(p domain.Position, _ int) bool {
		return !seen[p.ISIN]
	})

	return append(merged, domain.ClonePositions(added)...)
}

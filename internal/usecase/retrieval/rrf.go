package retrieval

import (
	"sort"

	"github.com/finsight-ai/finsight/internal/domain"
)

// rrfC is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfC = 60

// maxFusedScore is the highest attainable raw fused score: rank 1 in both lists.
const maxFusedScore = 2.0 / (rrfC + 1)

// fuseRRF merges the dense and sparse ranked lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(c + rank_i(d)) over the lists where d appears, with
// 1-based ranks. Fused scores are normalized to [0,1] so downstream relevance
// math can treat them uniformly. Ties break by best single-list rank, then by
// chunk ID, so ordering is deterministic for identical inputs.
func fuseRRF(dense, sparse []domain.Chunk, topK int) []domain.Chunk {
	type scored struct {
		chunk    domain.Chunk
		score    float64
		bestRank int
		origin   domain.Origin
	}

	merged := make(map[string]*scored)

	for i, c := range dense {
		rank := i + 1
		merged[c.ID()] = &scored{
			chunk:    c,
			score:    1.0 / float64(rrfC+rank),
			bestRank: rank,
			origin:   domain.OriginDense,
		}
	}

	for i, c := range sparse {
		rank := i + 1
		s := 1.0 / float64(rrfC+rank)
		if existing, ok := merged[c.ID()]; ok {
			existing.score += s
			existing.origin = domain.OriginBoth
			if rank < existing.bestRank {
				existing.bestRank = rank
			}
		} else {
			merged[c.ID()] = &scored{chunk: c, score: s, bestRank: rank, origin: domain.OriginSparse}
		}
	}

	fused := make([]*scored, 0, len(merged))
	for _, s := range merged {
		fused = append(fused, s)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		if fused[i].bestRank != fused[j].bestRank {
			return fused[i].bestRank < fused[j].bestRank
		}
		return fused[i].chunk.ID() < fused[j].chunk.ID()
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}

	chunks := make([]domain.Chunk, 0, len(fused))
	for _, s := range fused {
		chunks = append(chunks, s.chunk.WithScore(s.score/maxFusedScore).WithOrigin(s.origin))
	}
	return chunks
}

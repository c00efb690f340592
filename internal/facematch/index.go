package facematch

import (
	"sort"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/enrollment"
)

// Candidate is one enrolled sample close to a query descriptor.
type Candidate struct {
	UserID     string  `json:"user_id"`
	SampleID   string  `json:"sample_id"`
	Similarity float64 `json:"similarity"`
}

type sampleRef struct {
	userID     string
	sampleID   string
	descriptor []float64
}

// SampleIndex is an approximate nearest neighbor index over every sample of
// one snapshot. It only narrows the candidate set; authentication decisions
// always go through Matcher.
type SampleIndex struct {
	graph    *hnsw.Graph[int]
	snapshot *enrollment.Snapshot
	refs     []sampleRef
	dims     int
}

// NewSampleIndex indexes the samples of snap whose descriptors have dims values.
// Samples of any other length are not indexed.
func NewSampleIndex(snap *enrollment.Snapshot, dims int) *SampleIndex {
	idx := &SampleIndex{snapshot: snap, dims: dims}

	// Create new graph with cosine distance.
	g := hnsw.NewGraph[int]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.EfSearch = constants.HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	for _, id := range snap.UserIDs() {
		p, _ := snap.Profile(id)
		for _, s := range p.Samples {
			if len(s.Descriptor) != dims || dims == 0 {
				continue
			}
			g.Add(hnsw.MakeNode(len(idx.refs), toFloat32(s.Descriptor)))
			idx.refs = append(idx.refs, sampleRef{userID: id, sampleID: s.ID, descriptor: s.Descriptor})
		}
	}

	if len(idx.refs) > 0 {
		idx.graph = g
	}
	return idx
}

// Snapshot returns the snapshot the index was built from.
func (idx *SampleIndex) Snapshot() *enrollment.Snapshot {
	return idx.snapshot
}

// Len returns the number of indexed samples.
func (idx *SampleIndex) Len() int {
	return len(idx.refs)
}

// Search returns up to k samples nearest to query, most similar first.
// Similarities are recomputed exactly on the stored descriptors.
func (idx *SampleIndex) Search(query []float64, k int) []Candidate {
	if idx.graph == nil || k <= 0 || len(query) != idx.dims {
		return nil
	}

	neighbors := idx.graph.Search(toFloat32(query), k)
	out := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		ref := idx.refs[n.Key]
		out = append(out, Candidate{
			UserID:     ref.userID,
			SampleID:   ref.sampleID,
			Similarity: Similarity(query, ref.descriptor),
		})
	}
	SortCandidates(out)
	return out
}

// SortCandidates orders candidates by descending similarity, then by user and sample id.
func SortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Similarity != c[j].Similarity {
			return c[i].Similarity > c[j].Similarity
		}
		if c[i].UserID != c[j].UserID {
			return c[i].UserID < c[j].UserID
		}
		return c[i].SampleID < c[j].SampleID
	})
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

package facematch

import (
	"sort"
	"sync"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/enrollment"
)

// Match is the aggregated score of one user against a query.
type Match struct {
	UserID         string  `json:"user_id"`
	Score          float64 `json:"score"`
	MaxSimilarity  float64 `json:"max_similarity"`
	MeanSimilarity float64 `json:"mean_similarity"`
	MinSimilarity  float64 `json:"min_similarity"`
	Samples        int     `json:"samples"`
}

// Matcher scores queries against snapshots with a pool of workers.
type Matcher struct {
	workers int
}

// NewMatcher creates a matcher. Non-positive worker counts use the default pool size.
func NewMatcher(workers int) *Matcher {
	if workers <= 0 {
		workers = constants.WorkerPoolSize
	}
	return &Matcher{workers: workers}
}

// FindBestMatch returns the user with the highest weighted score.
// Equal scores resolve to the smallest user id. It reports false when no
// user has samples.
func (m *Matcher) FindBestMatch(snap *enrollment.Snapshot, query []float64) (Match, bool) {
	matches := m.ScoreAll(snap, query)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// ScoreAll scores every user with at least one sample, ordered by descending
// score and then ascending user id.
func (m *Matcher) ScoreAll(snap *enrollment.Snapshot, query []float64) []Match {
	userIDs := snap.UserIDs()
	if len(userIDs) == 0 {
		return nil
	}

	jobs := make(chan string, len(userIDs))
	results := make(chan Match, len(userIDs))
	var wg sync.WaitGroup

	for range min(m.workers, len(userIDs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				p, _ := snap.Profile(id)
				if match, ok := scoreProfile(p, query); ok {
					results <- match
				}
			}
		}()
	}

	for _, id := range userIDs {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	matches := make([]Match, 0, len(userIDs))
	for match := range results {
		matches = append(matches, match)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].UserID < matches[j].UserID
	})
	return matches
}

// scoreProfile aggregates the similarity of query to every sample of p as
// 0.4*max + 0.4*mean + 0.2*min.
func scoreProfile(p *enrollment.Profile, query []float64) (Match, bool) {
	if len(p.Samples) == 0 {
		return Match{}, false
	}

	hi, lo, sum := 0.0, 1.0, 0.0
	for _, smp := range p.Samples {
		s := Similarity(query, smp.Descriptor)
		hi = max(hi, s)
		lo = min(lo, s)
		sum += s
	}
	mean := sum / float64(len(p.Samples))

	return Match{
		UserID:         p.UserID,
		Score:          constants.MaxWeight*hi + constants.MeanWeight*mean + constants.MinWeight*lo,
		MaxSimilarity:  hi,
		MeanSimilarity: mean,
		MinSimilarity:  lo,
		Samples:        len(p.Samples),
	}, true
}

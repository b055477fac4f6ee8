package cluster

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// similarityThreshold is the minimum title token overlap (Jaccard) for two
// raw articles to be grouped as the same story.
const similarityThreshold = 0.5

// Store provides the persistence operations clustering needs.
type Store interface {
	ListUnprocessedRaw(ctx context.Context, limit int) ([]model.RawArticle, error)
	CreateCluster(ctx context.Context, c model.Cluster, memberIDs []string) error
}

// Stats summarises one clustering pass.
type Stats struct {
	Clusters int `json:"clusters"`
	Items    int `json:"items"`
}

// Clusterer groups unprocessed raw articles into near-duplicate clusters.
// Grouping is greedy and deterministic: articles are visited oldest-first,
// each unassigned article seeds a cluster and absorbs every later unassigned
// article whose title is similar enough.
type Clusterer struct {
	store Store
	batch int
}

// New creates a Clusterer that processes up to batch articles per pass.
func New(store Store, batch int) *Clusterer {
	return &Clusterer{store: store, batch: batch}
}

// Run performs one clustering pass. Creating a cluster marks its members
// processed, so re-running after a partial failure only picks up leftovers.
func (c *Clusterer) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	raws, err := c.store.ListUnprocessedRaw(ctx, c.batch)
	if err != nil {
		return stats, fmt.Errorf("list unprocessed: %w", err)
	}
	if len(raws) == 0 {
		return stats, nil
	}

	tokens := make([]map[string]struct{}, len(raws))
	for i, raw := range raws {
		tokens[i] = titleTokens(raw.Title)
	}

	assigned := make([]bool, len(raws))
	for i := range raws {
		if assigned[i] {
			continue
		}
		memberIDs := []string{raws[i].ID}
		assigned[i] = true
		for j := i + 1; j < len(raws); j++ {
			if assigned[j] {
				continue
			}
			if jaccard(tokens[i], tokens[j]) >= similarityThreshold {
				memberIDs = append(memberIDs, raws[j].ID)
				assigned[j] = true
			}
		}

		cl := model.NewCluster(uuid.NewString(), raws[i].Title)
		if err := c.store.CreateCluster(ctx, cl, memberIDs); err != nil {
			return stats, fmt.Errorf("create cluster: %w", err)
		}
		stats.Clusters++
		stats.Items += len(memberIDs)
	}
	return stats, nil
}

var nonToken = regexp.MustCompile(`[^a-z0-9]+`)

// titleTokens normalizes a title into its set of lowercase tokens.
func titleTokens(title string) map[string]struct{} {
	normalized := nonToken.ReplaceAllString(strings.ToLower(title), " ")
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		set[tok] = struct{}{}
	}
	return set
}

// jaccard computes |a∩b| / |a∪b| for two token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

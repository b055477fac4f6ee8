package model

import "time"

// Cluster groups raw articles judged to describe the same underlying event.
// A raw article belongs to at most one cluster.
type Cluster struct {
	ID                  string `json:"id"`
	RepresentativeTitle string `json:"representative_title"`
	CreatedAt           string `json:"created_at"`
}

// ClusterMember links a raw article into a cluster.
type ClusterMember struct {
	ClusterID    string `json:"cluster_id"`
	RawArticleID string `json:"raw_article_id"`
}

// NewCluster creates a Cluster with the given representative title.
func NewCluster(id, title string) Cluster {
	return Cluster{
		ID:                  id,
		RepresentativeTitle: title,
		CreatedAt:           time.Now().UTC().Format(time.RFC3339),
	}
}

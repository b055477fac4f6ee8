package store

import (
	"context"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// StatusCounts holds the number of signals per lifecycle status.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Approved   int `json:"approved"`
	Published  int `json:"published"`
	Archived   int `json:"archived"`
	Rejected   int `json:"rejected"`
}

// SourceStore provides access to configured content sources.
type SourceStore interface {
	UpsertSource(ctx context.Context, src model.Source) error
	GetSource(ctx context.Context, id string) (*model.Source, error)
	ListSources(ctx context.Context) ([]model.Source, error)
	ListActiveSources(ctx context.Context) ([]model.Source, error)
}

// RawStore provides access to fetched raw articles.
type RawStore interface {
	InsertRawArticle(ctx context.Context, raw model.RawArticle) error
	ListUnprocessedRaw(ctx context.Context, limit int) ([]model.RawArticle, error)
}

// ClusterStore provides access to near-duplicate clusters.
type ClusterStore interface {
	CreateCluster(ctx context.Context, c model.Cluster, memberIDs []string) error
	ListClustersWithoutSignals(ctx context.Context, limit int) ([]model.Cluster, error)
	ListClusterMembers(ctx context.Context, clusterID string) ([]model.RawArticle, error)
}

// SignalReader provides read access to signals.
type SignalReader interface {
	GetSignal(ctx context.Context, id string) (*model.Signal, error)
	ListSignals(ctx context.Context, f model.SignalFilter) ([]model.Signal, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
	CountStalledProcessing(ctx context.Context, cutoff string) (int, error)
}

// SignalWriter provides write access to signals.
type SignalWriter interface {
	CreateSignal(ctx context.Context, sig model.Signal) error
	UpdateSignalStatus(ctx context.Context, id, from, to string) error
	DeleteSignal(ctx context.Context, id string) error
}

// SignalClaimer provides atomic claim operations for the synthesis stage.
type SignalClaimer interface {
	ClaimApprovedSignal(ctx context.Context, id string) (*model.Signal, error)
	ReleaseSignal(ctx context.Context, id string) error
	RescueStalled(ctx context.Context, cutoff string) (int64, error)
}

// ArticleStore provides access to synthesized articles.
type ArticleStore interface {
	CreateArticle(ctx context.Context, a model.Article) error
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*model.Article, error)
	GetArticleBySignal(ctx context.Context, signalID string) (*model.Article, error)
	ListArticles(ctx context.Context, includeDrafts bool) ([]model.Article, error)
	PublishArticle(ctx context.Context, id string) error
}

// CycleLogStore provides access to per-cycle audit logs.
type CycleLogStore interface {
	InsertCycleLog(ctx context.Context, entry model.CycleLog) error
	ListCycleLogs(ctx context.Context, cycleID string) ([]model.CycleLog, error)
	PruneCycleLogs(ctx context.Context, before string) (int64, error)
}

// Repository combines all store operations for the API layer.
type Repository interface {
	SourceStore
	RawStore
	ClusterStore
	SignalReader
	SignalWriter
	SignalClaimer
	ArticleStore
	CycleLogStore
}

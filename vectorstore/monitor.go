package vectorstore

import (
	"log/slog"

	"github.com/poiesic/docchat/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterSimilarityScan(results []*core.SearchResult)
	KeywordHit(chunk *core.Chunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                             {}
func (n *noopMonitor) AfterSimilarityScan(_ []*core.SearchResult) {}
func (n *noopMonitor) KeywordHit(_ *core.Chunk)                   {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)              {}

// LogMonitor reports each search stage at debug level.
type LogMonitor struct {
	Logger *slog.Logger
}

var _ SearchMonitor = (*LogMonitor)(nil)

func (m *LogMonitor) Start(query string) {
	m.Logger.Debug("search started", "query", query)
}

func (m *LogMonitor) AfterSimilarityScan(results []*core.SearchResult) {
	m.Logger.Debug("similarity scan finished", "candidates", len(results))
}

func (m *LogMonitor) KeywordHit(chunk *core.Chunk) {
	m.Logger.Debug("keyword hit", "path", chunk.Path, "position", chunk.Position)
}

func (m *LogMonitor) Finish(results []*core.SearchResult) {
	for i, r := range results {
		m.Logger.Debug("search result", "rank", i+1, "score", r.Score, "path", r.Chunk.Path, "position", r.Chunk.Position)
	}
}

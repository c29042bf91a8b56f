package memory

import (
	"context"
	"sort"
	"time"

	"github.com/lazypower/ballast/internal/store"
)

// LocalService is a sqlite-backed Service so ballast works with no external
// memory service configured. Ranking is lexical cosine similarity over
// term-frequency vectors, computed at query time.
type LocalService struct {
	db *store.DB
}

// NewLocalService wraps an opened store.
func NewLocalService(db *store.DB) *LocalService {
	return &LocalService{db: db}
}

func (s *LocalService) Add(ctx context.Context, content, tag string, meta Metadata) (string, error) {
	ts := meta.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return s.db.InsertRecord(&store.Record{
		Tag:        tag,
		Content:    content,
		Type:       meta.Type,
		Category:   meta.Category,
		Confidence: meta.Confidence,
		SessionID:  meta.SessionID,
		CreatedAt:  ts.UnixMilli(),
	})
}

func (s *LocalService) Search(ctx context.Context, query, tag string, limit int) ([]Result, error) {
	records, err := s.db.RecordsByTag(tag)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	queryVec := termVector(query)

	var results []Result
	for _, r := range records {
		sim := cosine(queryVec, termVector(r.Content))
		if sim <= 0 {
			continue
		}
		results = append(results, Result{
			ID:         r.ID,
			Content:    r.Content,
			Type:       r.Type,
			Similarity: sim,
			CreatedAt:  time.UnixMilli(r.CreatedAt),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *LocalService) List(ctx context.Context, tag string, limit int) ([]Record, error) {
	records, err := s.db.ListRecords(tag, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, Record{
			ID:      r.ID,
			Content: r.Content,
			Meta: Metadata{
				Type:       r.Type,
				Category:   r.Category,
				Confidence: r.Confidence,
				SessionID:  r.SessionID,
				Timestamp:  time.UnixMilli(r.CreatedAt),
			},
			CreatedAt: time.UnixMilli(r.CreatedAt),
		})
	}
	return out, nil
}

func (s *LocalService) Forget(ctx context.Context, tag, recordID string) (bool, error) {
	if recordID == "" {
		n, err := s.db.DeleteByTag(tag)
		return n > 0, err
	}
	return s.db.DeleteRecord(tag, recordID)
}

package memory

import (
	"ai-consultation-be/pkg/consultation"
	"ai-consultation-be/pkg/conversation"
	"context"
	"sort"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps sessions in process memory. Entries never expire on
// their own; idle eviction belongs to the conversation sweeper.
type SessionRepository struct {
	cache *cache.Cache
}

var _ conversation.Store = &SessionRepository{}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *SessionRepository) Get(_ context.Context, id string) (*consultation.Session, bool, error) {
	if x, found := r.cache.Get(id); found {
		return x.(*consultation.Session).Clone(), true, nil
	}
	return nil, false, nil
}

func (r *SessionRepository) Put(_ context.Context, session *consultation.Session) error {
	r.cache.Set(session.ID, session.Clone(), cache.NoExpiration)
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.cache.Delete(id)
	return nil
}

func (r *SessionRepository) List(_ context.Context) ([]string, error) {
	items := r.cache.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Count is the number of stored sessions.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

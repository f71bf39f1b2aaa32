package app

import (
	"context"
	"log"
	"sync"

	"nagarconnect/api/internal/store"
)

// issueCache holds the public issue list between change events so the
// 30-second client polls do not each hit Postgres. The realtime
// refresher owns invalidation; until its first fetch the cache is cold
// and reads fall through to the store.
type issueCache struct {
	mu     sync.RWMutex
	issues []store.Issue
	warm   bool
}

func (c *issueCache) get() ([]store.Issue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.issues, c.warm
}

func (c *issueCache) set(issues []store.Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issues = issues
	c.warm = true
}

// RefreshIssueCache refetches the public issue list. Wired as the
// refetch callback of the change-feed refresher.
func (s *Service) RefreshIssueCache(ctx context.Context) {
	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		log.Printf(`{"event":"issue_cache_refresh_failed","error":"%s"}`, err)
		return
	}
	s.issues.set(issues)
}

package account

import (
	"context"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"shopease/internal/repository"
	"shopease/pkg/log"
)

// identityFilter remembers every taken username and email. A miss is definite,
// so registration can skip the uniqueness queries for fresh identities.
type identityFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func newIdentityFilter(capacity uint, fpRate float64) *identityFilter {
	return &identityFilter{filter: bloom.NewWithEstimates(capacity, fpRate)}
}

func usernameKey(username string) []byte {
	return []byte("u:" + strings.ToLower(username))
}

func emailKey(email string) []byte {
	return []byte("e:" + strings.ToLower(email))
}

func (f *identityFilter) add(username, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.Add(usernameKey(username))
	f.filter.Add(emailKey(email))
}

func (f *identityFilter) mayHaveUsername(username string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.Test(usernameKey(username))
}

func (f *identityFilter) mayHaveEmail(email string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.Test(emailKey(email))
}

// warm loads the identities already stored
func (f *identityFilter) warm(ctx context.Context, repo repository.UserRepository) error {
	count := 0
	err := repo.Identities(ctx, func(username, email string) {
		f.add(username, email)
		count++
	})
	if err != nil {
		return err
	}
	log.WithField("identities", count).Info("Registration filter warmed")
	return nil
}

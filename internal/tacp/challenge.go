package tacp

import (
	"sync"
	"time"
)

// challengeTTL bounds how long a pending trust challenge may wait for its
// proof before being evicted (spec §4.5 step 2, §9's "trust-challenge TTL
// ... this spec recommends 60 s").
const challengeTTL = 60 * time.Second

type challengeRecord struct {
	Nonce        string
	Requirements []string
	MinimumGrade string
	IssuedAt     time.Time
}

// challengeStore holds pending trust challenges keyed by challenge id. A
// record is consumed on its first (and only) proof lookup and evicted on
// TTL expiry regardless, so a nonce is never reused (spec §4.5: "the nonce
// must never be reused; the challenge record is consumed on first proof and
// evicted on TTL expiry regardless").
type challengeStore struct {
	mu      sync.Mutex
	records map[string]challengeRecord
}

func newChallengeStore() *challengeStore {
	return &challengeStore{records: make(map[string]challengeRecord)}
}

func (c *challengeStore) put(id string, r challengeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[id] = r
}

// take returns and removes the record for id, reporting false if absent or
// past its TTL.
func (c *challengeStore) take(id string) (challengeRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.records[id]
	delete(c.records, id)
	if !ok {
		return challengeRecord{}, false
	}
	if time.Since(r.IssuedAt) > challengeTTL {
		return challengeRecord{}, false
	}
	return r, true
}

// sweep evicts every expired record without emitting a message (spec §5:
// "trust-challenge TTL expires pending records without emitting a
// message"), returning the count evicted.
func (c *challengeStore) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for id, r := range c.records {
		if time.Since(r.IssuedAt) > challengeTTL {
			delete(c.records, id)
			evicted++
		}
	}
	return evicted
}

package conversation

import (
	"strconv"
	"time"

	"github.com/velkoldin-dev/tratyallday/internal/cache"
	"github.com/velkoldin-dev/tratyallday/internal/core"
)

// State is the position of a user inside a flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingAmount
	StateAwaitingCategory
	StateFixSelect
	StateFixAction
	StateFixAmount
	StateFixCategory
)

func (s State) String() string {
	switch s {
	case StateAwaitingAmount:
		return "awaiting_amount"
	case StateAwaitingCategory:
		return "awaiting_category"
	case StateFixSelect:
		return "fix_select"
	case StateFixAction:
		return "fix_action"
	case StateFixAmount:
		return "fix_amount"
	case StateFixCategory:
		return "fix_category"
	default:
		return "idle"
	}
}

// Flow names the flow a state belongs to.
func (s State) Flow() string {
	switch s {
	case StateAwaitingAmount, StateAwaitingCategory:
		return "add"
	case StateFixSelect, StateFixAction, StateFixAmount, StateFixCategory:
		return "fix"
	default:
		return ""
	}
}

// Session is the in-flight state of one user's open flow.
type Session struct {
	State         State
	PendingAmount core.Money // add flow
	FixAmount     core.Money // fix flow
	Candidates    []core.Expense
	Selected      core.Expense
	UpdatedAt     time.Time
}

// SessionStore holds at most one session per user.
type SessionStore interface {
	Get(userID int64) (Session, bool)
	Put(userID int64, s Session)
	Delete(userID int64)
}

// CacheSessionStore keeps sessions in an LRU cache; a session not written
// for the idle timeout disappears.
type CacheSessionStore struct {
	cache *cache.LRUCache[Session]
}

var _ SessionStore = (*CacheSessionStore)(nil)

// NewCacheSessionStore creates a store that forgets sessions idle for longer than idle.
func NewCacheSessionStore(maxSessions int, idle time.Duration, opts ...cache.Option) *CacheSessionStore {
	return &CacheSessionStore{cache: cache.NewLRUCache[Session](maxSessions, idle, opts...)}
}

func (s *CacheSessionStore) Get(userID int64) (Session, bool) {
	return s.cache.Get(key(userID))
}

func (s *CacheSessionStore) Put(userID int64, sess Session) {
	s.cache.Set(key(userID), sess)
}

func (s *CacheSessionStore) Delete(userID int64) {
	s.cache.Delete(key(userID))
}

// CleanExpired lets a cache.Manager sweep abandoned sessions.
func (s *CacheSessionStore) CleanExpired() int {
	return s.cache.CleanExpired()
}

func (s *CacheSessionStore) Size() int {
	return s.cache.Size()
}

func key(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

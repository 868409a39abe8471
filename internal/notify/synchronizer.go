package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// DefaultPageSize is the number of notifications loaded by the initial
// bulk read and by Refetch.
const DefaultPageSize = 50

// Store is the row-storage half of the external data gateway, typed to
// notifications. Reads are ordered by creation time descending.
type Store interface {
	// ListNotifications returns the most recent notifications for the
	// user, newest first, up to limit.
	ListNotifications(ctx context.Context, userID string,
		limit int) ([]Notification, error)

	// MarkNotificationRead marks a single notification as read, scoped
	// to the owning user.
	MarkNotificationRead(ctx context.Context, id, userID string) error

	// MarkAllNotificationsRead marks every unread notification of the
	// user as read in one bulk update.
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// ChangeFeed is the push half of the gateway: a subscription delivering
// newly inserted notifications for one user.
//
// Contract: events for a given user are delivered in insertion order,
// at-least-once. The Synchronizer deduplicates by notification ID, so
// redelivery is harmless; out-of-order delivery is not supported. The
// returned unsubscribe function stops delivery and must not block on
// in-flight sends.
type ChangeFeed interface {
	Subscribe(ctx context.Context, userID string,
		ch chan<- Notification) (func(), error)
}

// State is the synchronizer's session state.
type State int

const (
	// StateLoggedOut means no identity is present: empty list, zero
	// unread, no subscription.
	StateLoggedOut State = iota

	// StateLoading means an identity arrived and the initial bulk read
	// is in progress while the feed subscription is being established.
	StateLoading

	// StateSynced means the bulk read completed and the feed is live.
	StateSynced
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateLoading:
		return "loading"
	case StateSynced:
		return "synced"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Config holds configuration for the Synchronizer.
type Config struct {
	// Store performs bulk reads and read-state updates.
	Store Store

	// Feed delivers realtime inserts.
	Feed ChangeFeed

	// PageSize bounds the initial bulk read. Defaults to
	// DefaultPageSize when zero.
	PageSize int

	// OnChange, when set, is invoked (outside the lock) after every
	// state change so a UI can re-render.
	OnChange func()

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// Synchronizer maintains an ordered, deduplicated notification list for
// the authenticated identity, kept consistent with the change feed, with
// optimistic mark-as-read reconciled against the store.
//
// The unread count is derived bookkeeping: it always equals the number of
// locally held notifications with IsRead == false.
type Synchronizer struct {
	cfg Config
	log *slog.Logger

	mu            sync.Mutex
	identity      fn.Option[string]
	state         State
	notifications []Notification
	unread        int
	unsub         func()
	stop          chan struct{}
}

// NewSynchronizer creates a logged-out synchronizer.
func NewSynchronizer(cfg Config) *Synchronizer {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Synchronizer{
		cfg: cfg,
		log: cfg.Logger.With("component", "notify-sync"),
	}
}

// Login starts a session for the given identity: any previous session is
// torn down first (so no cross-user data can leak), the feed subscription
// is established, then the initial bulk read runs. A read failure leaves
// the synchronizer in StateLoading with the subscription active; Refetch
// completes the sync.
func (s *Synchronizer) Login(ctx context.Context, userID string) error {
	s.mu.Lock()

	// Tear down the previous identity before anything belonging to the
	// new one becomes visible.
	s.logoutLocked()

	s.identity = fn.Some(userID)
	s.state = StateLoading

	feedCh := make(chan Notification, 64)
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	// Subscribe before the bulk read so inserts racing the read are not
	// missed; duplicates between feed and read are folded by ID.
	unsub, err := s.cfg.Feed.Subscribe(ctx, userID, feedCh)
	if err != nil {
		s.log.Warn("Change feed subscription failed",
			"user_id", userID, "err", err)
	} else {
		s.mu.Lock()
		if s.identity.UnwrapOr("") == userID {
			s.unsub = unsub
		} else {
			// Logged out (or switched identity) while
			// subscribing.
			s.mu.Unlock()
			unsub()
			return nil
		}
		s.mu.Unlock()
	}

	go s.consume(userID, feedCh, stop)

	if err := s.load(ctx, userID); err != nil {
		return fmt.Errorf("initial notification load: %w", err)
	}

	return nil
}

// Logout tears down the subscription and clears all local state. Safe to
// call when already logged out.
func (s *Synchronizer) Logout() {
	s.mu.Lock()
	s.logoutLocked()
	s.mu.Unlock()

	s.notifyChange()
}

// logoutLocked clears session state. Callers must hold s.mu.
func (s *Synchronizer) logoutLocked() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}

	s.identity = fn.None[string]()
	s.state = StateLoggedOut
	s.notifications = nil
	s.unread = 0
}

// Refetch re-issues the full bulk read for the current identity, replacing
// local state entirely. This is the authoritative resync point. A no-op
// when logged out; on failure prior state is left untouched.
func (s *Synchronizer) Refetch(ctx context.Context) error {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	if identity.IsNone() {
		return nil
	}
	userID := identity.UnwrapOr("")

	return s.load(ctx, userID)
}

// load performs the bulk read and commits it if the identity is unchanged.
func (s *Synchronizer) load(ctx context.Context, userID string) error {
	list, err := s.cfg.Store.ListNotifications(
		ctx, userID, s.cfg.PageSize,
	)
	if err != nil {
		s.log.Error("Notification bulk read failed",
			"user_id", userID, "err", err)
		return err
	}

	s.mu.Lock()
	if s.identity.UnwrapOr("") != userID {
		s.mu.Unlock()
		return nil
	}

	s.notifications = list
	s.unread = countUnread(list)
	s.state = StateSynced
	s.mu.Unlock()

	s.notifyChange()

	return nil
}

// consume drains the feed channel until the session ends.
func (s *Synchronizer) consume(userID string, ch <-chan Notification,
	stop <-chan struct{}) {

	for {
		select {
		case <-stop:
			return

		case n, ok := <-ch:
			if !ok {
				return
			}
			s.handleInsert(userID, n)
		}
	}
}

// handleInsert prepends a freshly inserted notification. The feed delivers
// newest-first ordering for a user, so a prepend keeps the list ordered
// without re-sorting. Redeliveries (at-least-once feed) are dropped by ID.
func (s *Synchronizer) handleInsert(userID string, n Notification) {
	s.mu.Lock()

	if s.identity.UnwrapOr("") != userID || n.UserID != userID {
		s.mu.Unlock()
		return
	}

	for _, existing := range s.notifications {
		if existing.ID == n.ID {
			s.mu.Unlock()
			return
		}
	}

	s.notifications = append([]Notification{n}, s.notifications...)
	if !n.IsRead {
		s.unread++
	}
	s.mu.Unlock()

	s.notifyChange()
}

// MarkAsRead optimistically marks one notification read, then confirms
// against the store. If the store update fails, the optimistic mutation is
// reverted and the error returned, so local state never silently diverges
// from backend truth.
func (s *Synchronizer) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()

	if s.identity.IsNone() {
		// No identity: skipped, not an error.
		s.mu.Unlock()
		return nil
	}
	userID := s.identity.UnwrapOr("")

	idx := -1
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}

	if s.notifications[idx].IsRead {
		// Already read, nothing to do locally or remotely.
		s.mu.Unlock()
		return nil
	}

	s.notifications[idx].IsRead = true
	if s.unread > 0 {
		s.unread--
	}
	s.mu.Unlock()

	s.notifyChange()

	if err := s.cfg.Store.MarkNotificationRead(ctx, id, userID); err != nil {
		s.revertRead(userID, []string{id})

		s.log.Warn("Mark-as-read failed, reverted",
			"notification_id", id, "err", err)
		return fmt.Errorf("mark as read: %w", err)
	}

	return nil
}

// MarkAllAsRead optimistically marks every local notification read and
// issues one bulk store update. On failure the specific notifications that
// were flipped are reverted.
func (s *Synchronizer) MarkAllAsRead(ctx context.Context) error {
	s.mu.Lock()

	if s.identity.IsNone() {
		s.mu.Unlock()
		return nil
	}
	userID := s.identity.UnwrapOr("")

	var flipped []string
	for i := range s.notifications {
		if !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			flipped = append(flipped, s.notifications[i].ID)
		}
	}
	s.unread = 0
	s.mu.Unlock()

	if len(flipped) == 0 {
		return nil
	}

	s.notifyChange()

	err := s.cfg.Store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		s.revertRead(userID, flipped)

		s.log.Warn("Mark-all-as-read failed, reverted",
			"count", len(flipped), "err", err)
		return fmt.Errorf("mark all as read: %w", err)
	}

	return nil
}

// revertRead is the compensating action for a failed optimistic
// mark-as-read: the given notifications are flipped back to unread if the
// session is still the same and they are still present.
func (s *Synchronizer) revertRead(userID string, ids []string) {
	s.mu.Lock()

	if s.identity.UnwrapOr("") != userID {
		s.mu.Unlock()
		return
	}

	for _, id := range ids {
		for i := range s.notifications {
			if s.notifications[i].ID != id {
				continue
			}
			if s.notifications[i].IsRead {
				s.notifications[i].IsRead = false
				s.unread++
			}
			break
		}
	}
	s.mu.Unlock()

	s.notifyChange()
}

// Notifications returns a copy of the current list, newest first.
func (s *Synchronizer) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Notification(nil), s.notifications...)
}

// UnreadCount returns the number of locally held unread notifications.
func (s *Synchronizer) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unread
}

// State returns the current session state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Identity returns the current identity, None when logged out.
func (s *Synchronizer) Identity() fn.Option[string] {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.identity
}

// notifyChange invokes the change callback outside the lock.
func (s *Synchronizer) notifyChange() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange()
	}
}

// countUnread counts notifications with IsRead == false.
func countUnread(list []Notification) int {
	count := 0
	for _, n := range list {
		if !n.IsRead {
			count++
		}
	}

	return count
}

package notify

import (
	"context"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

// TestUnreadCountInvariant verifies that for any interleaving of insert
// events and mark-as-read operations, the tracked unread count always
// equals the number of locally held notifications with IsRead == false.
func TestUnreadCountInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := newMockStore()
		sync := NewSynchronizer(Config{
			Store: store,
			Feed:  newMockFeed(),
		})

		const userID = "user-a"
		if err := sync.Login(context.Background(), userID); err != nil {
			t.Fatal(err)
		}

		nextID := 0
		numOps := rapid.IntRange(1, 60).Draw(t, "numOps")

		for i := 0; i < numOps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0, 1:
				// Insert, occasionally pre-read, occasionally
				// a redelivery of an existing ID.
				id := fmt.Sprintf("n%d", nextID)
				if nextID > 0 && rapid.Bool().Draw(t, "redeliver") {
					id = fmt.Sprintf(
						"n%d",
						rapid.IntRange(0, nextID-1).
							Draw(t, "dupID"),
					)
				} else {
					nextID++
				}

				read := rapid.Bool().Draw(t, "preRead")
				n := notif(id, userID, read)
				store.add(n)
				sync.handleInsert(userID, n)

			case 2:
				// Mark one notification read, sometimes an
				// unknown ID.
				id := fmt.Sprintf(
					"n%d",
					rapid.IntRange(0, nextID+2).
						Draw(t, "readID"),
				)
				// Errors are fine; the invariant must hold
				// either way.
				_ = sync.MarkAsRead(context.Background(), id)

			case 3:
				_ = sync.MarkAllAsRead(context.Background())
			}

			// INVARIANT: unread count is always derivable from
			// the held list.
			want := 0
			for _, n := range sync.Notifications() {
				if !n.IsRead {
					want++
				}
			}
			if got := sync.UnreadCount(); got != want {
				t.Fatalf("unread count %d, want %d", got, want)
			}
		}
	})
}

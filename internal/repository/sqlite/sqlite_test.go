package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/event-feed/internal/database"
	"github.com/Shivanand-hulikatti/event-feed/internal/model"
	"github.com/Shivanand-hulikatti/event-feed/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateEvent(t *testing.T, r *EventRepository, handle, name string) *model.Event {
	t.Helper()
	e, err := r.Create(context.Background(), model.CreateEventRequest{
		Handle: handle, Eventname: name, Starttime: "2024/01/01 18", Endtime: "2024/01/01 21",
	})
	if err != nil {
		t.Fatalf("create %q: %v", name, err)
	}
	return e
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := users.Upsert(ctx, model.User{Handle: "alice", DisplayName: "Alice"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := users.Upsert(ctx, model.User{Handle: "alice", DisplayName: "Alice B"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var n int
	var name string
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(display_name) FROM users WHERE handle = 'alice'`).Scan(&n, &name); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 || name != "Alice B" {
		t.Errorf("rows=%d name=%q, want 1 %q", n, name, "Alice B")
	}
}

func TestEventRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	events := NewEventRepository(db)

	if err := users.Upsert(ctx, model.User{Handle: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	created := mustCreateEvent(t, events, "alice", "Movie Night")
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("created = %+v", created)
	}

	got, err := events.GetByID(ctx, created.ID, "bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Eventname != "Movie Night" || got.Username != "Alice" || got.Handle != "alice" ||
		got.Starttime != "2024/01/01 18" || got.Endtime != "2024/01/01 21" {
		t.Errorf("got %+v", got)
	}
	if got.Joins != 0 || got.Joined {
		t.Errorf("joins=%d joined=%v, want 0 false", got.Joins, got.Joined)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at %v != %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := openTestDB(t)
	events := NewEventRepository(db)
	ctx := context.Background()

	if _, err := events.GetByID(ctx, 999999, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err)
	}

	// An event whose owner never declared an identity cannot be shown.
	orphan := mustCreateEvent(t, events, "ghost", "Orphan")
	if _, err := events.GetByID(ctx, orphan.ID, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("orphan: err = %v, want ErrNotFound", err)
	}
	list, err := events.List(ctx, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("orphan event listed: %+v", list)
	}
}

func TestJoinLedger(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	events := NewEventRepository(db)
	joins := NewJoinRepository(db, false)

	if err := users.Upsert(ctx, model.User{Handle: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e := mustCreateEvent(t, events, "alice", "Movie Night")

	check := func(wantJoins int, wantJoined bool) {
		t.Helper()
		got, err := events.GetByID(ctx, e.ID, "bob")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Joins != wantJoins || got.Joined != wantJoined {
			t.Errorf("detail joins=%d joined=%v, want %d %v", got.Joins, got.Joined, wantJoins, wantJoined)
		}
		list, err := events.List(ctx, "", "bob")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 || list[0].Joins != wantJoins || list[0].Joined != wantJoined {
			t.Errorf("feed = %+v, want joins=%d joined=%v", list, wantJoins, wantJoined)
		}
	}

	added, err := joins.Add(ctx, e.ID, "bob")
	if err != nil || !added {
		t.Fatalf("join: added=%v err=%v", added, err)
	}
	check(1, true)

	// A second join is recorded as another row.
	if _, err := joins.Add(ctx, e.ID, "bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	check(2, true)

	removed, err := joins.Remove(ctx, e.ID, "bob")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	check(0, false)

	removed, err = joins.Remove(ctx, e.ID, "bob")
	if err != nil || removed != 0 {
		t.Errorf("second leave: removed=%d err=%v", removed, err)
	}
}

func TestUniqueJoinLedger(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	joins := NewJoinRepository(db, true)

	first, err := joins.Add(ctx, 7, "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	second, err := joins.Add(ctx, 7, "bob")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !first || second {
		t.Errorf("Add = %v, %v; want true, false", first, second)
	}
	other, err := joins.Add(ctx, 7, "carol")
	if err != nil || !other {
		t.Errorf("other handle: added=%v err=%v", other, err)
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM joins WHERE event_id = 7`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
}

func TestConcurrentJoinsAreAllRecorded(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	joins := NewJoinRepository(db, false)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := joins.Add(ctx, 1, "bob"); err != nil {
				t.Errorf("join: %v", err)
			}
		}()
	}
	wg.Wait()

	removed, err := joins.Remove(ctx, 1, "bob")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if removed != n {
		t.Errorf("removed = %d, want %d", removed, n)
	}
}

func TestListSearchAndOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	events := NewEventRepository(db)

	if err := users.Upsert(ctx, model.User{Handle: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	mustCreateEvent(t, events, "alice", "Movie Night")
	mustCreateEvent(t, events, "alice", "Board Games")
	mustCreateEvent(t, events, "alice", "100% Fun")

	movie, err := events.List(ctx, "Movie", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(movie) != 1 || movie[0].Eventname != "Movie Night" {
		t.Errorf("search Movie = %+v", movie)
	}

	all, err := events.List(ctx, "", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"100% Fun", "Board Games", "Movie Night"}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d", len(all), len(want))
	}
	for i, name := range want {
		if all[i].Eventname != name {
			t.Errorf("all[%d] = %q, want %q", i, all[i].Eventname, name)
		}
	}

	// Wildcards in the term are matched literally.
	pct, err := events.List(ctx, "%", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pct) != 1 || pct[0].Eventname != "100% Fun" {
		t.Errorf("search %% = %+v", pct)
	}
}

func TestRepliesOrdered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	replies := NewReplyRepository(db)

	for _, u := range []model.User{{Handle: "bob", DisplayName: "Bob"}, {Handle: "carol", DisplayName: "Carol"}} {
		if err := users.Upsert(ctx, u); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	var ids []int64
	for i, c := range []string{"R1", "R2", "R3"} {
		handle := "bob"
		if i == 1 {
			handle = "carol"
		}
		id, err := replies.Create(ctx, model.ReplyRequest{Handle: handle, Content: c, ReplyToEventID: 1})
		if err != nil {
			t.Fatalf("reply: %v", err)
		}
		ids = append(ids, id)
	}
	if _, err := replies.Create(ctx, model.ReplyRequest{Handle: "bob", Content: "elsewhere", ReplyToEventID: 2}); err != nil {
		t.Fatalf("reply: %v", err)
	}

	got, err := replies.ListByEvent(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []string{"R1", "R2", "R3"} {
		if got[i].Content != want || got[i].ID != ids[i] {
			t.Errorf("got[%d] = %+v, want %s", i, got[i], want)
		}
	}
	if got[1].Username != "Carol" {
		t.Errorf("author = %q, want Carol", got[1].Username)
	}
	if got[0].CreatedAt.After(got[1].CreatedAt) || got[1].CreatedAt.After(got[2].CreatedAt) {
		t.Error("replies not ascending by created_at")
	}
}

func TestRepliesFromUnknownAuthorsAreOmitted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	replies := NewReplyRepository(db)

	if err := users.Upsert(ctx, model.User{Handle: "bob", DisplayName: "Bob"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	for _, r := range []model.ReplyRequest{
		{Handle: "bob", Content: "known", ReplyToEventID: 1},
		{Handle: "ghost", Content: "unknown", ReplyToEventID: 1},
	} {
		if _, err := replies.Create(ctx, r); err != nil {
			t.Fatalf("reply: %v", err)
		}
	}

	got, err := replies.ListByEvent(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Content != "known" || got[0].Username != "Bob" {
		t.Errorf("replies = %+v, want only bob's", got)
	}
}

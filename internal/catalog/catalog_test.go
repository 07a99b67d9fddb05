package catalog

import "testing"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertThenListRoundTrips(t *testing.T) {
	s := openTestStore(t)

	if err := s.Insert(Session{
		Prefix:          "/tmp/sess-1",
		PID:             4242,
		StartedAtUnixNs: 1000,
		BuildGitSHA:     "deadbeef",
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List() len = %d, want 1", len(got))
	}
	if got[0].Prefix != "/tmp/sess-1" || got[0].PID != 4242 || got[0].StartedAtUnixNs != 1000 {
		t.Errorf("List()[0] = %+v, unexpected", got[0])
	}
	if got[0].EndedAtUnixNs.Valid {
		t.Errorf("EndedAtUnixNs should be unset before Complete")
	}
}

func TestCompleteSetsEndTimeAndExitCode(t *testing.T) {
	s := openTestStore(t)

	if err := s.Insert(Session{Prefix: "/tmp/sess-2", PID: 1, StartedAtUnixNs: 500}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Complete("/tmp/sess-2", 9000, 0); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List() len = %d, want 1", len(got))
	}
	if !got[0].EndedAtUnixNs.Valid || got[0].EndedAtUnixNs.Int64 != 9000 {
		t.Errorf("EndedAtUnixNs = %+v, want valid 9000", got[0].EndedAtUnixNs)
	}
	if !got[0].ExitCode.Valid || got[0].ExitCode.Int64 != 0 {
		t.Errorf("ExitCode = %+v, want valid 0", got[0].ExitCode)
	}
}

func TestCompleteUnknownPrefixIsNoop(t *testing.T) {
	s := openTestStore(t)

	if err := s.Complete("/tmp/does-not-exist", 1, 1); err != nil {
		t.Errorf("Complete on unknown prefix should not error, got %v", err)
	}
	got, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() len = %d, want 0", len(got))
	}
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	if err := s.Insert(Session{Prefix: "/tmp/a", PID: 1, StartedAtUnixNs: 100}); err != nil {
		t.Fatalf("Insert a: %v", err)
	}
	if err := s.Insert(Session{Prefix: "/tmp/b", PID: 2, StartedAtUnixNs: 200}); err != nil {
		t.Fatalf("Insert b: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Prefix != "/tmp/b" || got[1].Prefix != "/tmp/a" {
		t.Errorf("List() = %+v, want [b, a]", got)
	}
}

func TestInsertReplacesExistingPrefix(t *testing.T) {
	s := openTestStore(t)

	if err := s.Insert(Session{Prefix: "/tmp/a", PID: 1, StartedAtUnixNs: 100}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(Session{Prefix: "/tmp/a", PID: 2, StartedAtUnixNs: 300}); err != nil {
		t.Fatalf("re-Insert: %v", err)
	}

	got, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].PID != 2 || got[0].StartedAtUnixNs != 300 {
		t.Errorf("List() = %+v, want single replaced row", got)
	}
}

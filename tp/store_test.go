package tp

import "testing"

func TestStoreInsertFindRemove(t *testing.T) {
	s := newStore(2)
	a := &InternalControlFunction{Addr: 1, Valid: true}
	b := &ExternalControlFunction{Addr: 2, Valid: true}
	sess := newReceiveSession(0xFEEB, 23, 4, 16, b, a)

	if s.hasSession(b, a) {
		t.Fatal("hasSession should be false before insert")
	}
	if err := s.insert(sess); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !s.hasSession(b, a) {
		t.Fatal("hasSession should be true after insert")
	}
	if got := s.find(b, a); got != sess {
		t.Fatalf("find returned %v, want %v", got, sess)
	}

	s.remove(sess)
	if s.hasSession(b, a) {
		t.Fatal("hasSession should be false after remove")
	}
	// remove is idempotent.
	s.remove(sess)
}

func TestStoreAtCapacity(t *testing.T) {
	s := newStore(1)
	a := &InternalControlFunction{Addr: 1, Valid: true}
	b := &ExternalControlFunction{Addr: 2, Valid: true}
	c := &ExternalControlFunction{Addr: 3, Valid: true}

	if err := s.insert(newReceiveSession(1, 9, 2, 16, b, a)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !s.atCapacity() {
		t.Fatal("expected store to report at capacity")
	}
	if err := s.insert(newReceiveSession(1, 9, 2, 16, c, a)); err != ErrAtCapacity {
		t.Fatalf("second insert error = %v, want ErrAtCapacity", err)
	}
}

func TestStoreIdentityNotAddressEquality(t *testing.T) {
	s := newStore(4)
	a1 := &ExternalControlFunction{Addr: 5, Valid: true}
	a2 := &ExternalControlFunction{Addr: 5, Valid: true}
	dest := &InternalControlFunction{Addr: 1, Valid: true}

	if err := s.insert(newReceiveSession(1, 9, 2, 16, a1, dest)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if s.hasSession(a2, dest) {
		t.Fatal("two distinct handles with the same address must not match")
	}
}

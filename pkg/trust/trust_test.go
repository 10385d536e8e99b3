package trust_test

import (
	"testing"

	"github.com/quantum-shield/qsfs-go/pkg/trust"
)

func TestMapStoreTrustedMembership(t *testing.T) {
	store := trust.NewMapStore("aa", "bb")

	if !store.IsTrusted("aa") {
		t.Error("expected aa to be trusted")
	}
	if !store.IsTrusted("bb") {
		t.Error("expected bb to be trusted")
	}
	if store.IsTrusted("cc") {
		t.Error("expected cc to be untrusted")
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestMapStoreAddRemove(t *testing.T) {
	store := trust.NewMapStore()

	if store.IsTrusted("cc") {
		t.Error("expected cc to be untrusted before Add")
	}

	store.Add("cc")
	if !store.IsTrusted("cc") {
		t.Error("expected cc to be trusted after Add")
	}

	store.Remove("cc")
	if store.IsTrusted("cc") {
		t.Error("expected cc to be untrusted after Remove")
	}
}

func TestMapStoreKeyedLookup(t *testing.T) {
	store := trust.NewMapStore()
	store.AddWithKey("aa", []byte("pinned-key"))
	store.Add("bb")

	key, ok := store.PublicKeyFor("aa")
	if !ok {
		t.Fatal("expected a pinned key for aa")
	}
	if string(key) != "pinned-key" {
		t.Errorf("PublicKeyFor(aa) = %q, want %q", key, "pinned-key")
	}

	if _, ok := store.PublicKeyFor("bb"); ok {
		t.Error("bb was added without a pinned key; PublicKeyFor should report false")
	}

	if _, ok := store.PublicKeyFor("cc"); ok {
		t.Error("cc was never added; PublicKeyFor should report false")
	}
}

func TestEmptyMapStoreTrustsNothing(t *testing.T) {
	store := trust.NewMapStore()
	if store.IsTrusted("anything") {
		t.Error("an empty MapStore should trust nothing")
	}
}

package roster_test

import (
	"testing"

	model "github.com/medichat/docboard/internal/model/roster"
	"github.com/medichat/docboard/internal/service/roster"
)

func TestReconcileInsertsUnknown(t *testing.T) {
	r := roster.New()

	added := r.Reconcile([]model.Patient{
		{ID: "P1", Name: "Asha", Online: true},
		{ID: "P2", Name: "Ben"},
	})
	if len(added) != 2 {
		t.Fatalf("added = %v, want two ids", added)
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}

	p, ok := r.Get("P1")
	if !ok || p.Name != "Asha" || !p.Online {
		t.Fatalf("unexpected P1 record: %+v ok=%v", p, ok)
	}
}

func TestReconcileDoesNotOverwriteKnown(t *testing.T) {
	r := roster.New()

	profile := &model.Profile{Name: "Asha Rao", Age: 34, Condition: "Migraine"}
	if !r.Connected("P1", profile) {
		t.Fatal("first connect should report a new patient")
	}

	// Snapshot omits the profile and carries stale presence data.
	r.Reconcile([]model.Patient{{ID: "P1", Name: "Asha", Online: false}})

	p, _ := r.Get("P1")
	if p.Profile == nil || p.Profile.Condition != "Migraine" {
		t.Fatalf("profile was erased by snapshot: %+v", p)
	}
	if !p.Online {
		t.Fatal("snapshot must not flip a known patient offline")
	}
}

func TestReconcileNeverPrunes(t *testing.T) {
	r := roster.New()

	r.Reconcile([]model.Patient{{ID: "P1"}, {ID: "P2"}})
	r.Reconcile([]model.Patient{{ID: "P2"}})

	if _, ok := r.Get("P1"); !ok {
		t.Fatal("patient absent from a later snapshot must survive")
	}
}

func TestRepeatConnectIsNoOp(t *testing.T) {
	r := roster.New()

	r.Connected("P1", &model.Profile{Name: "Asha", Condition: "Migraine"})
	if r.Connected("P1", &model.Profile{Name: "Someone Else"}) {
		t.Fatal("repeat connect should not report a new patient")
	}

	p, _ := r.Get("P1")
	if p.Profile.Name != "Asha" {
		t.Fatalf("repeat connect corrupted the record: %+v", p)
	}
}

func TestDisconnectedMarksOfflineOnly(t *testing.T) {
	r := roster.New()

	r.Connected("P1", &model.Profile{Name: "Asha"})
	r.SetTyping("P1", true)
	r.Disconnected("P1")

	p, _ := r.Get("P1")
	if p.Online || p.Typing {
		t.Fatalf("disconnect should clear online and typing: %+v", p)
	}
	if p.Profile == nil {
		t.Fatal("disconnect must not touch the profile")
	}
}

func TestSetTypingRestoresOnline(t *testing.T) {
	r := roster.New()

	r.Reconcile([]model.Patient{{ID: "P1", Online: false}})
	r.SetTyping("P1", true)

	p, _ := r.Get("P1")
	if !p.Typing || !p.Online {
		t.Fatalf("typing patient should be online: %+v", p)
	}

	r.SetTyping("P1", false)
	p, _ = r.Get("P1")
	if p.Typing || !p.Online {
		t.Fatalf("stop typing keeps patient online: %+v", p)
	}
}

func TestAllPreservesFirstSeenOrder(t *testing.T) {
	r := roster.New()

	r.Reconcile([]model.Patient{{ID: "P2"}})
	r.Connected("P1", nil)
	r.Reconcile([]model.Patient{{ID: "P3"}, {ID: "P2"}})

	all := r.All()
	want := []string{"P2", "P1", "P3"}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Fatalf("position %d holds %s, want %s", i, all[i].ID, id)
		}
	}
}

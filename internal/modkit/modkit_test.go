package modkit

import (
	"testing"

	"playreviews/internal/platform/store"
	kit "playreviews/internal/platform/testkit"
)

type fakeModule struct{ ports any }

func (f fakeModule) Ports() any   { return f.ports }
func (f fakeModule) Name() string { return "fake" }

type fakePorts struct{ N int }

func TestPortsAs(t *testing.T) {
	got := PortsAs[fakePorts](fakeModule{ports: fakePorts{N: 3}})
	if got.N != 3 {
		t.Fatalf("PortsAs = %+v", got)
	}
	kit.MustPanic(t, func() { _ = PortsAs[fakePorts](fakeModule{ports: "nope"}) })
}

func TestDepsAccessorsTolerateNilStore(t *testing.T) {
	var d Deps
	if d.PG() != nil || d.SQLite() != nil || d.CH() != nil {
		t.Fatalf("nil store should yield nil seams")
	}
	d.Store = &store.Store{}
	if d.PG() != nil || d.SQLite() != nil || d.CH() != nil {
		t.Fatalf("empty store should yield nil seams")
	}
}

package writer

import "testing"

func TestVersionDominatesHigherSlot(t *testing.T) {
	incoming := Version{Slot: 100, WriteVersion: 0}
	stored := Version{Slot: 99, WriteVersion: 999}
	if !incoming.Dominates(stored) {
		t.Fatal("higher slot should dominate regardless of write_version")
	}
}

func TestVersionDominatesLowerSlot(t *testing.T) {
	incoming := Version{Slot: 40, WriteVersion: 999}
	stored := Version{Slot: 50, WriteVersion: 0}
	if incoming.Dominates(stored) {
		t.Fatal("lower slot must never dominate")
	}
}

func TestVersionDominatesSameSlotHigherWriteVersion(t *testing.T) {
	incoming := Version{Slot: 100, WriteVersion: 6}
	stored := Version{Slot: 100, WriteVersion: 5}
	if !incoming.Dominates(stored) {
		t.Fatal("higher write_version at same slot should dominate")
	}
}

func TestVersionTieIsNoOp(t *testing.T) {
	v := Version{Slot: 100, WriteVersion: 5}
	if v.Dominates(v) {
		t.Fatal("identical tuple must not dominate itself (tie is a no-op)")
	}
}

func TestVersionDominatesMonotonicMax(t *testing.T) {
	// Property 1 (spec §8): delivering tuples in arbitrary order converges
	// on the pointwise maximum.
	deliveries := []Version{
		{Slot: 10, WriteVersion: 3},
		{Slot: 12, WriteVersion: 0},
		{Slot: 11, WriteVersion: 9},
		{Slot: 12, WriteVersion: 5},
	}
	var stored Version
	for _, v := range deliveries {
		if v.Dominates(stored) {
			stored = v
		}
	}
	want := Version{Slot: 12, WriteVersion: 5}
	if stored != want {
		t.Fatalf("final version = %+v, want %+v", stored, want)
	}
}

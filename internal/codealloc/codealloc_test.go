package codealloc

import "testing"

func TestTryAllocSliceNearAlignment(t *testing.T) {
	a := New(64, true)
	spec := AddressSpec{Near: 0, MaxDistance: ^uintptr(0) / 2}
	for i := 0; i < 100; i++ {
		s, err := a.TryAllocSliceNear(spec, 16)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		if s.Addr()%16 != 0 {
			t.Fatalf("slice %d not 16-aligned: %#x", i, s.Addr())
		}
	}
}

func TestFreeSliceReturnsToFreeListUnderRWX(t *testing.T) {
	a := New(64, true)
	spec := AddressSpec{Near: 0, MaxDistance: ^uintptr(0) / 2}
	s, err := a.TryAllocSliceNear(spec, 1)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if err := a.FreeSlice(s); err != nil {
		t.Fatalf("free: %v", err)
	}
	if len(a.freeList) == 0 {
		t.Fatal("expected freed slice back on free list under RWX mode")
	}
}

func TestCommitDropsFreeListUnderWX(t *testing.T) {
	a := New(64, false)
	spec := AddressSpec{Near: 0, MaxDistance: ^uintptr(0) / 2}
	if _, err := a.TryAllocSliceNear(spec, 1); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if len(a.freeList) == 0 {
		t.Fatal("expected some slices on the free list before commit")
	}
	if err := a.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(a.freeList) != 0 {
		t.Fatal("W^X commit must drop the free list: slices can't be reused across a commit boundary")
	}
}

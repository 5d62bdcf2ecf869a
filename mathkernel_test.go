// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curation

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestFullMul128RoundTrip(t *testing.T) {
	a := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	b := new(uint256.Int).Lsh(uint256.NewInt(1), 90)

	hi, lo, err := FullMul128(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reconstructed := new(uint256.Int).Lsh(hi, 128)
	reconstructed.Or(reconstructed, lo)

	want := new(uint256.Int).Lsh(uint256.NewInt(1), 190)
	if reconstructed.Cmp(want) != 0 {
		t.Fatalf("got %s, want %s", reconstructed, want)
	}
}

func TestFullMul128RejectsOversizedOperand(t *testing.T) {
	a := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	b := uint256.NewInt(2)
	if _, _, err := FullMul128(a, b); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMulDivBasic(t *testing.T) {
	a := uint256.NewInt(1_000_000)
	b := uint256.NewInt(3)
	d := uint256.NewInt(7)

	got, err := MulDiv(a, b, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uint256.NewInt((1_000_000 * 3) / 7)
	if got.Cmp(want) != 0 {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestMulDivDivisionByZero(t *testing.T) {
	a := uint256.NewInt(1)
	b := uint256.NewInt(1)
	d := uint256.NewInt(0)
	if _, err := MulDiv(a, b, d); err != ErrDivisionByZero {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestDivWideOverflowsWhenHiExceedsDivisor(t *testing.T) {
	hi := uint256.NewInt(10)
	lo := uint256.NewInt(0)
	d := uint256.NewInt(5)
	if _, err := DivWide(hi, lo, d); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestIntegerSqrtExactSquares(t *testing.T) {
	cases := []uint64{0, 1, 4, 9, 16, 1_000_000, 1 << 40}
	for _, n := range cases {
		nn := new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(n))
		got := IntegerSqrt(nn)
		if got.Uint64() != n {
			t.Errorf("IntegerSqrt(%d^2) = %s, want %d", n, got, n)
		}
	}
}

func TestIntegerSqrtFloorsNonSquares(t *testing.T) {
	cases := map[uint64]uint64{
		2:  1,
		3:  1,
		8:  2,
		15: 3,
		99: 9,
	}
	for n, want := range cases {
		got := IntegerSqrt(uint256.NewInt(n))
		if got.Uint64() != want {
			t.Errorf("IntegerSqrt(%d) = %s, want %d", n, got, want)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	cases := []struct{ a, b, want uint64 }{
		{10, 5, 2},
		{11, 5, 3},
		{1, 1, 1},
		{0, 5, 0},
	}
	for _, c := range cases {
		got, err := CeilDiv(uint256.NewInt(c.a), uint256.NewInt(c.b))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Uint64() != c.want {
			t.Errorf("CeilDiv(%d,%d) = %s, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestRoundToNearestBankersRounding(t *testing.T) {
	cases := []struct{ value, divisor, want uint64 }{
		{10, 4, 2},  // 2.5 -> even (2)... see below
		{6, 4, 2},   // 1.5 -> even (2)
		{9, 4, 2},   // 2.25 -> 2
		{11, 4, 3},  // 2.75 -> 3
		{2, 4, 0},   // 0.5 -> even (0)... see below
	}
	// Note: 10/4 = 2.5 exactly -> rounds to even quotient. quotient=2 (even) stays 2.
	cases[0].want = 2
	// 2/4 = 0.5 exactly -> quotient=0 (even) stays 0.
	cases[4].want = 0

	for _, c := range cases {
		got, err := RoundToNearest(uint256.NewInt(c.value), uint256.NewInt(c.divisor))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Uint64() != c.want {
			t.Errorf("RoundToNearest(%d,%d) = %s, want %d", c.value, c.divisor, got, c.want)
		}
	}
}

func TestQ64FromU64ToU64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 42, 1_000_000} {
		q := Q64FromU64(v)
		back, err := Q64ToU64(q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if back != v {
			t.Errorf("round trip %d -> %d", v, back)
		}
	}
}

func TestQ64MulIdentity(t *testing.T) {
	a := Q64FromU64(7)
	got, err := Q64Mul(a, OneQ64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(a) != 0 {
		t.Fatalf("7 * 1.0 = %s, want %s", got, a)
	}
}

func TestQ64SqrtOfOne(t *testing.T) {
	got, err := Q64Sqrt(OneQ64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(OneQ64) != 0 {
		t.Fatalf("sqrt(1.0) = %s, want %s", got, OneQ64)
	}
}

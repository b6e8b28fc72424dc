package util

import (
	"testing"
	"time"
)

func TestParseLocalRoundTrip(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	src := time.Date(2025, 3, 9, 7, 3, 0, 0, loc)
	got, err := ParseLocal(FormatDate(src), FormatClock(src), loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(src) {
		t.Fatalf("expected %v, got %v", src, got)
	}
}

func TestParseLocalShortClock(t *testing.T) {
	got, err := ParseLocal("20250309", "300", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 0 || got.Minute() != 3 {
		t.Fatalf("unexpected clock %v", got)
	}
}

func TestWallClockRoundTrip(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	src := time.Date(2025, 1, 2, 2, 59, 0, 0, loc)
	w := WallClock(src)
	if w.Hour() != 2 || w.Location() != time.UTC {
		t.Fatalf("unexpected wall clock %v", w)
	}
	if !FromWallClock(w, loc).Equal(src) {
		t.Fatalf("round trip mismatch")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" BTC-USDT-SWAP, ,ETH-USDT-SWAP ")
	if len(got) != 2 || got[0] != "BTC-USDT-SWAP" || got[1] != "ETH-USDT-SWAP" {
		t.Fatalf("unexpected list %v", got)
	}
	if SplitList("  ") != nil {
		t.Fatalf("expected nil for blank input")
	}
}

func TestTickerFromInstrument(t *testing.T) {
	if got := TickerFromInstrument("btc-usdt-swap"); got != "BTCUSDTSWAP" {
		t.Fatalf("unexpected ticker %s", got)
	}
}

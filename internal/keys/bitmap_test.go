package keys

import (
	"errors"
	"testing"
)

func TestBitmapSetClearTest(t *testing.T) {
	b := NewBitmap(KeyCodeCount)

	if b.Test(KeyVolumeUp) {
		t.Error("new bitmap should have no codes set")
	}

	b.Set(KeyVolumeUp)
	if !b.Test(KeyVolumeUp) {
		t.Error("expected code set after Set")
	}

	b.Clear(KeyVolumeUp)
	if b.Test(KeyVolumeUp) {
		t.Error("expected code clear after Clear")
	}
}

func TestBitmapOutOfRangeIgnored(t *testing.T) {
	b := NewBitmap(SwitchCodeCount)

	b.Set(-1)
	b.Set(SwitchCodeCount)
	b.Set(SwitchCodeCount + 100)

	if got := len(b.Codes()); got != 0 {
		t.Errorf("out-of-range Set should be ignored, got %d codes", got)
	}
	if b.Test(-1) || b.Test(SwitchCodeCount) {
		t.Error("out-of-range Test should report false")
	}
}

func TestBitmapCodesAscending(t *testing.T) {
	b := NewBitmap(KeyCodeCount)
	b.Set(115)
	b.Set(102)
	b.Set(114)

	codes := b.Codes()
	want := []int{102, 114, 115}
	if len(codes) != len(want) {
		t.Fatalf("Codes: got %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Codes[%d]: got %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestParseRangeListSingle(t *testing.T) {
	b, err := ParseRangeList("5", 32)
	if err != nil {
		t.Fatalf("ParseRangeList: %v", err)
	}
	if !b.Test(5) {
		t.Error("expected code 5 set")
	}
	if got := len(b.Codes()); got != 1 {
		t.Errorf("expected 1 code, got %d", got)
	}
}

func TestParseRangeListRange(t *testing.T) {
	b, err := ParseRangeList("9-11", 32)
	if err != nil {
		t.Fatalf("ParseRangeList: %v", err)
	}
	for c := 9; c <= 11; c++ {
		if !b.Test(c) {
			t.Errorf("expected code %d set", c)
		}
	}
	if b.Test(8) || b.Test(12) {
		t.Error("range should not spill outside 9-11")
	}
}

func TestParseRangeListReversedRange(t *testing.T) {
	// Endpoints in descending order mark the same codes.
	b, err := ParseRangeList("11-9,5", 32)
	if err != nil {
		t.Fatalf("ParseRangeList: %v", err)
	}
	want := []int{5, 9, 10, 11}
	codes := b.Codes()
	if len(codes) != len(want) {
		t.Fatalf("Codes: got %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Codes[%d]: got %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestParseRangeListWhitespace(t *testing.T) {
	b, err := ParseRangeList(" 5, 9 - 11 \n", 32)
	if err != nil {
		t.Fatalf("ParseRangeList: %v", err)
	}
	if !b.Test(5) || !b.Test(10) {
		t.Errorf("expected 5 and 10 set, got %v", b.Codes())
	}
}

func TestParseRangeListEmpty(t *testing.T) {
	b, err := ParseRangeList("", 32)
	if err != nil {
		t.Fatalf("ParseRangeList: %v", err)
	}
	if got := len(b.Codes()); got != 0 {
		t.Errorf("empty input should yield empty bitmap, got %d codes", got)
	}
}

func TestParseRangeListInvalid(t *testing.T) {
	cases := []string{
		"abc",
		"5,abc",
		"5-",
		"-5",
		"5--7",
		",",
		"5,",
		"768",    // one past the key space
		"0-1000", // range end out of space
	}
	for _, in := range cases {
		if _, err := ParseRangeList(in, KeyCodeCount); err == nil {
			t.Errorf("ParseRangeList(%q): expected error", in)
		} else if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("ParseRangeList(%q): error %v is not ErrInvalidFormat", in, err)
		}
	}
}

func TestRangeListFormat(t *testing.T) {
	b := NewBitmap(KeyCodeCount)
	b.Set(5)
	b.Set(9)
	b.Set(10)
	b.Set(11)

	if got := b.RangeList(); got != "5,9-11" {
		t.Errorf("RangeList: got %q, want %q", got, "5,9-11")
	}
}

func TestRangeListEmpty(t *testing.T) {
	b := NewBitmap(KeyCodeCount)
	if got := b.RangeList(); got != "" {
		t.Errorf("RangeList of empty bitmap: got %q, want empty", got)
	}
}

func TestRangeListSingleAndEdges(t *testing.T) {
	b := NewBitmap(17)
	b.Set(0)
	b.Set(1)
	b.Set(16)

	if got := b.RangeList(); got != "0-1,16" {
		t.Errorf("RangeList: got %q, want %q", got, "0-1,16")
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	// A reversed-order input normalizes to ascending on output.
	b, err := ParseRangeList("11-9,5", 32)
	if err != nil {
		t.Fatalf("ParseRangeList: %v", err)
	}
	if got := b.RangeList(); got != "5,9-11" {
		t.Errorf("RangeList: got %q, want %q", got, "5,9-11")
	}
}

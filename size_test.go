package fstree

import "testing"

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"1024":  1024,
		"10K":   10_000,
		"10Ki":  10 * 1024,
		"10M":   10_000_000,
		"10Mi":  10 * 1024 * 1024,
		"10G":   10_000_000_000,
		"10Gi":  10 * (1 << 30),
		"10GiB": 10 * (1 << 30),
		"10GB":  10_000_000_000,
		"1Ti":   1 << 40,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		if err != nil {
			t.Errorf("ParseSize(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseSizeInvalid(t *testing.T) {
	_, err := ParseSize("not-a-size")
	if err == nil {
		t.Fatalf("expected error for malformed size")
	}
	if !IsKind(err, KindInvalidArgument) {
		t.Fatalf("got kind %v, want InvalidArgument", err)
	}
}

package crypto

import (
	"testing"
	"time"

	"sentinel/internal/domain"
)

func TestApprovalHashDeterministic(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data := map[string]any{"target": "account", "confirm": true}

	a, err := ApprovalHash("user-1", domain.ActionAccountDelete, data, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ApprovalHash("user-1", domain.ActionAccountDelete, map[string]any{"confirm": true, "target": "account"}, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("map key order must not change the hash: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestApprovalHashSensitiveToEveryField(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data := map[string]any{"target": "account"}
	base, err := ApprovalHash("user-1", domain.ActionAccountDelete, data, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	variants := []struct {
		name string
		hash func() (string, error)
	}{
		{"user", func() (string, error) {
			return ApprovalHash("user-2", domain.ActionAccountDelete, data, ts)
		}},
		{"action type", func() (string, error) {
			return ApprovalHash("user-1", domain.ActionDataExport, data, ts)
		}},
		{"action data", func() (string, error) {
			return ApprovalHash("user-1", domain.ActionAccountDelete, map[string]any{"target": "profile"}, ts)
		}},
		{"timestamp", func() (string, error) {
			return ApprovalHash("user-1", domain.ActionAccountDelete, data, ts.Add(time.Nanosecond))
		}},
	}
	for _, v := range variants {
		h, err := v.hash()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", v.name, err)
		}
		if h == base {
			t.Fatalf("changing %s must change the hash", v.name)
		}
	}
}

func TestApprovalHashNilDataMatchesEmpty(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, err := ApprovalHash("user-1", domain.ActionEmailSend, nil, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := ApprovalHash("user-1", domain.ActionEmailSend, map[string]any{}, ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("nil and empty action data should hash alike: %s vs %s", a, b)
	}
}

func TestHashesEqual(t *testing.T) {
	if !HashesEqual("abc123", "abc123") {
		t.Fatal("equal strings should compare equal")
	}
	if HashesEqual("abc123", "abc124") {
		t.Fatal("different strings should not compare equal")
	}
	if HashesEqual("abc", "abc123") {
		t.Fatal("different lengths should not compare equal")
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("some resume text")
	if a != Fingerprint("some resume text") {
		t.Fatal("fingerprint should be stable")
	}
	if a == Fingerprint("some other text") {
		t.Fatal("different inputs should fingerprint differently")
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(a))
	}
}

func TestCanonicalizeSortsKeys(t *testing.T) {
	out, err := Canonicalize(map[string]any{"b": 2, "a": 1, "c": []any{"x", map[string]any{"z": nil, "y": true}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"a":1,"b":2,"c":["x",{"y":true,"z":null}]}`
	if string(out) != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

func TestCanonicalizePreservesNumberText(t *testing.T) {
	out, err := Canonicalize(map[string]any{"n": 10.5, "big": int64(9007199254740993)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"big":9007199254740993,"n":10.5}`
	if string(out) != want {
		t.Fatalf("expected %s, got %s", want, out)
	}
}

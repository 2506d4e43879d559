package fieldlock

import "testing"

func TestCanAutomationWrite(t *testing.T) {
	cases := []struct {
		name   string
		locker Locker
		field  string
		force  bool
		want   bool
	}{
		{"unlocked field", stubLocker{}, "title", false, true},
		{"locked field", stubLocker{locked: []string{"title"}}, "title", false, false},
		{"locked field, other field unaffected", stubLocker{locked: []string{"title"}}, "plot", false, true},
		{"locked field with force", stubLocker{locked: []string{"title"}}, "title", true, true},
		{"wildcard lock blocks everything", stubLocker{locked: []string{Wildcard}}, "anything", false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CanAutomationWrite(c.locker, c.field, c.force); got != c.want {
				t.Errorf("CanAutomationWrite = %v, want %v", got, c.want)
			}
		})
	}
}

type stubLocker struct {
	locked []string
}

func (s stubLocker) IsFieldLocked(field string) bool {
	return IsLocked(s.locked, field)
}

func TestLockedFieldsAfterUserWrite(t *testing.T) {
	got := LockedFieldsAfterUserWrite([]string{"title"}, "plot")
	want := []string{"title", "plot"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("LockedFieldsAfterUserWrite = %v, want %v", got, want)
	}

	// writing an already-locked field is idempotent
	got = LockedFieldsAfterUserWrite([]string{"title"}, "title")
	if len(got) != 1 || got[0] != "title" {
		t.Errorf("expected no duplicate lock entry, got %v", got)
	}
}

func TestLockedFieldsAfterReset(t *testing.T) {
	got := LockedFieldsAfterReset([]string{"title", "plot"}, "title")
	if len(got) != 1 || got[0] != "plot" {
		t.Errorf("LockedFieldsAfterReset = %v, want [plot]", got)
	}

	// a wildcard lock can't be narrowed field-by-field
	got = LockedFieldsAfterReset([]string{Wildcard}, "title")
	if len(got) != 1 || got[0] != Wildcard {
		t.Errorf("expected wildcard lock to be left untouched, got %v", got)
	}
}

package userrecord

import (
	"errors"
	"testing"
)

// TestCreateParams_Validate covers the accepted and rejected creation inputs.
func TestCreateParams_Validate(t *testing.T) {
	valid := CreateParams{Owner: "Alice", Count: 2, Grade: Grade2nd, Language: LanguageEnglish}
	tests := []struct {
		name    string
		mutate  func(p *CreateParams)
		wantErr error
	}{
		{"valid", func(p *CreateParams) {}, nil},
		{"lower bound", func(p *CreateParams) { p.Count = 1 }, nil},
		{"upper bound", func(p *CreateParams) { p.Count = 100 }, nil},
		{"zero count", func(p *CreateParams) { p.Count = 0 }, ErrInvalidCount},
		{"too many", func(p *CreateParams) { p.Count = 101 }, ErrInvalidCount},
		{"unknown grade", func(p *CreateParams) { p.Grade = "8th" }, ErrInvalidGrade},
		{"unknown language", func(p *CreateParams) { p.Language = "French" }, ErrInvalidLanguage},
		{"missing owner", func(p *CreateParams) { p.Owner = "" }, ErrEmptyOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestFromPayloads_AssignsSequentialRowIDs verifies row ids follow payload order starting at 1.
func TestFromPayloads_AssignsSequentialRowIDs(t *testing.T) {
	got := FromPayloads([]Payload{
		{UserID: "u1", LevelsPlayed: 3, Experimenter: "Alice", Grade: "3rd"},
		{UserID: "u0", LevelsPlayed: 1, Experimenter: "Bob", Grade: "1st"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	want := Record{RowID: 1, UserID: "u1", LevelsPlayed: 3, Experimenter: "Alice", Grade: "3rd"}
	if got[0] != want {
		t.Errorf("record[0] = %+v, want %+v", got[0], want)
	}
	if got[1].RowID != 2 || got[1].UserID != "u0" {
		t.Errorf("record[1] = %+v, want RowID 2 for u0", got[1])
	}
}

// TestNewCreated verifies new records carry zero levels and the single owner.
func TestNewCreated(t *testing.T) {
	params := CreateParams{Owner: "Alice", Count: 2, Grade: Grade2nd, Language: LanguageEnglish}
	got, err := NewCreated([]string{"new1", "new2"}, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range got {
		if r.LevelsPlayed != 0 || r.Experimenter != "Alice" || r.Grade != Grade2nd {
			t.Errorf("record[%d] = %+v", i, r)
		}
	}
	if _, err := NewCreated([]string{"ok", ""}, params); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("err = %v, want ErrEmptyUserID", err)
	}
}

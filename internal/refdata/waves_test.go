package refdata

import (
	"testing"

	"github.com/avionde/odp-backend/internal/pkg/errs"
)

func TestParseWaveCalendar(t *testing.T) {
	raw := []byte(`
waves:
  - year: 2027
    quarter: 1
    date: "2027-03-31"
  - year: 2027
    quarter: 2
    date: "2027-06-30"
  - year: 2028
`)
	waves, err := ParseWaveCalendar(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(waves))
	}
	if waves[0].Year != 2027 || waves[0].Quarter != 1 || waves[0].Date != "2027-03-31" {
		t.Fatalf("first wave = %+v", waves[0])
	}
	if waves[2].Quarter != 0 {
		t.Fatalf("missing quarter should decode as 0, got %d", waves[2].Quarter)
	}
}

func TestParseWaveCalendarDuplicate(t *testing.T) {
	raw := []byte(`
waves:
  - year: 2027
    quarter: 1
  - year: 2027
    quarter: 1
`)
	_, err := ParseWaveCalendar(raw)
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseWaveCalendarBadYAML(t *testing.T) {
	_, err := ParseWaveCalendar([]byte("waves: [year: }"))
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseWaveCalendarEmpty(t *testing.T) {
	waves, err := ParseWaveCalendar([]byte(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waves) != 0 {
		t.Fatalf("expected no waves, got %v", waves)
	}
}

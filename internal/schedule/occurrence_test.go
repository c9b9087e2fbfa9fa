package schedule

import (
	"testing"

	"registro/internal/core"
)

func TestNextPerFrequency(t *testing.T) {
	tests := []struct {
		name      string
		due       core.Date
		frequency core.Frequency
		want      core.Date
	}{
		{
			name:      "daily advances one day",
			due:       core.NewDate(2024, 3, 1),
			frequency: core.Daily,
			want:      core.NewDate(2024, 3, 2),
		},
		{
			name:      "daily crosses month boundary",
			due:       core.NewDate(2024, 1, 31),
			frequency: core.Daily,
			want:      core.NewDate(2024, 2, 1),
		},
		{
			name:      "weekly advances seven days",
			due:       core.NewDate(2024, 3, 1),
			frequency: core.Weekly,
			want:      core.NewDate(2024, 3, 8),
		},
		{
			name:      "weekly crosses year boundary",
			due:       core.NewDate(2024, 12, 30),
			frequency: core.Weekly,
			want:      core.NewDate(2025, 1, 6),
		},
		{
			name:      "monthly plain",
			due:       core.NewDate(2024, 3, 15),
			frequency: core.Monthly,
			want:      core.NewDate(2024, 4, 15),
		},
		{
			name:      "monthly Jan 31 clamps to Feb 29 in leap year",
			due:       core.NewDate(2024, 1, 31),
			frequency: core.Monthly,
			want:      core.NewDate(2024, 2, 29),
		},
		{
			name:      "monthly Jan 31 clamps to Feb 28 in non-leap year",
			due:       core.NewDate(2025, 1, 31),
			frequency: core.Monthly,
			want:      core.NewDate(2025, 2, 28),
		},
		{
			name:      "monthly Mar 31 clamps to Apr 30",
			due:       core.NewDate(2024, 3, 31),
			frequency: core.Monthly,
			want:      core.NewDate(2024, 4, 30),
		},
		{
			name:      "monthly December rolls into next year",
			due:       core.NewDate(2024, 12, 31),
			frequency: core.Monthly,
			want:      core.NewDate(2025, 1, 31),
		},
		{
			name:      "yearly plain",
			due:       core.NewDate(2024, 6, 10),
			frequency: core.Yearly,
			want:      core.NewDate(2025, 6, 10),
		},
		{
			name:      "yearly Feb 29 clamps to Feb 28 in non-leap year",
			due:       core.NewDate(2024, 2, 29),
			frequency: core.Yearly,
			want:      core.NewDate(2025, 2, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.due, tt.frequency)
			if err != nil {
				t.Fatalf("Next(%s, %s) error: %v", tt.due, tt.frequency, err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("Next(%s, %s) = %s, want %s", tt.due, tt.frequency, got, tt.want)
			}
		})
	}
}

// Every valid frequency must advance strictly forward, whatever the input.
func TestNextIsStrictlyMonotonic(t *testing.T) {
	dates := []core.Date{
		core.NewDate(2024, 1, 1),
		core.NewDate(2024, 1, 31),
		core.NewDate(2024, 2, 29),
		core.NewDate(2024, 12, 31),
		core.NewDate(2025, 2, 28),
		core.NewDate(2025, 6, 15),
	}
	frequencies := []core.Frequency{core.Daily, core.Weekly, core.Monthly, core.Yearly}

	for _, d := range dates {
		for _, f := range frequencies {
			got, err := Next(d, f)
			if err != nil {
				t.Fatalf("Next(%s, %s) error: %v", d, f, err)
			}
			if !got.After(d.Time) {
				t.Errorf("Next(%s, %s) = %s, not strictly after input", d, f, got)
			}
		}
	}
}

func TestGetAdvancerUnknownFrequency(t *testing.T) {
	if _, err := GetAdvancer(core.Frequency("fortnightly")); err == nil {
		t.Fatal("expected error for unknown frequency")
	}
	if _, err := GetAdvancer(core.Frequency("")); err == nil {
		t.Fatal("expected error for empty frequency")
	}
}

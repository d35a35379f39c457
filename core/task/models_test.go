package task

import (
	"testing"
	"time"
)

func TestAddSchoolDays(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 5, d, 9, 0, 0, 0, time.UTC) } // May 2024: 3rd is a Friday

	tests := []struct {
		name string
		from time.Time
		n    int
		want time.Time
	}{
		{name: "zero", from: day(3), n: 0, want: day(3)},
		{name: "midweek", from: day(1), n: 1, want: day(2)},
		{name: "friday to monday", from: day(3), n: 1, want: day(6)},
		{name: "saturday to monday", from: day(4), n: 1, want: day(6)},
		{name: "over a weekend", from: day(2), n: 3, want: day(7)},
		{name: "two weeks", from: day(6), n: 10, want: day(20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddSchoolDays(tt.from, tt.n); !got.Equal(tt.want) {
				t.Errorf("AddSchoolDays(%v, %d) = %v; want %v", tt.from.Weekday(), tt.n, got, tt.want)
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	if PriorityRank(PriorityUrgent) <= PriorityRank(PriorityHigh) {
		t.Errorf("urgent should outrank high")
	}
	if PriorityRank(PriorityLow) != 0 {
		t.Errorf("PriorityRank(low) = %d; want 0", PriorityRank(PriorityLow))
	}
	if PriorityRank("whatever") != -1 {
		t.Errorf("unknown priorities should rank -1")
	}
}

func TestNewTask_Validate(t *testing.T) {
	due := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		nt      NewTask
		wantErr bool
	}{
		{name: "valid", nt: NewTask{Description: "Call mom", TaskType: TypeGuardianNotification, DueDate: due}},
		{name: "no description", nt: NewTask{TaskType: TypeOther, DueDate: due}, wantErr: true},
		{name: "bad type", nt: NewTask{Description: "x", TaskType: "party", DueDate: due}, wantErr: true},
		{name: "bad priority", nt: NewTask{Description: "x", TaskType: TypeOther, DueDate: due, Priority: "meh"}, wantErr: true},
		{name: "bad assignee", nt: NewTask{Description: "x", TaskType: TypeOther, DueDate: due, AssignedTo: "bob"}, wantErr: true},
		{name: "no due date", nt: NewTask{Description: "x", TaskType: TypeOther}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.nt.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

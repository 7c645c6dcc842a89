package model

import (
	"testing"
)

func TestShiftSegment_Normalized(t *testing.T) {
	tests := []struct {
		name      string
		segment   ShiftSegment
		wantStart int
		wantEnd   int
		crosses   bool
	}{
		{"白班", ShiftSegment{StartMinute: 480, EndMinute: 960}, 480, 960, false},
		{"夜班 end<start", ShiftSegment{StartMinute: 1320, EndMinute: 360}, 1320, 1800, true},
		{"夜班 end>1440", ShiftSegment{StartMinute: 1320, EndMinute: 1800}, 1320, 1800, true},
		{"零长度视为整日", ShiftSegment{StartMinute: 600, EndMinute: 600}, 600, 2040, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.segment.Normalized()
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Normalized() = (%d, %d), want (%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
			if tt.segment.CrossesMidnight() != tt.crosses {
				t.Errorf("CrossesMidnight() = %v, want %v", tt.segment.CrossesMidnight(), tt.crosses)
			}
			if tt.segment.DurationMinutes() != tt.wantEnd-tt.wantStart {
				t.Errorf("DurationMinutes() = %d", tt.segment.DurationMinutes())
			}
		})
	}
}

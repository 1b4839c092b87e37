package progress

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name             string
		completed, total int
		want             float64
	}{
		{name: "no lessons", completed: 0, total: 0, want: 0},
		{name: "none completed", completed: 0, total: 4, want: 0},
		{name: "three quarters", completed: 3, total: 4, want: 75},
		{name: "one third", completed: 1, total: 3, want: 33.33},
		{name: "two thirds", completed: 2, total: 3, want: 66.67},
		{name: "all", completed: 7, total: 7, want: 100},
		{name: "capped", completed: 5, total: 4, want: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.completed, tt.total); got != tt.want {
				t.Errorf("Percentage(%d, %d) = %v, want %v", tt.completed, tt.total, got, tt.want)
			}
		})
	}
}

func TestParseLessonID(t *testing.T) {
	tests := []struct {
		id             string
		wantLessonID   string
		wantAssessment bool
	}{
		{id: "abc", wantLessonID: "abc"},
		{id: "assessment-abc", wantLessonID: "abc", wantAssessment: true},
		{id: "xassessment-abc", wantLessonID: "xassessment-abc"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			lessonID, isAssessment := ParseLessonID(tt.id)
			if lessonID != tt.wantLessonID || isAssessment != tt.wantAssessment {
				t.Errorf("ParseLessonID(%q) = (%q, %v), want (%q, %v)",
					tt.id, lessonID, isAssessment, tt.wantLessonID, tt.wantAssessment)
			}
		})
	}
}

func TestLessonProgressMerge(t *testing.T) {
	earlier := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	now := earlier.Add(time.Hour)

	completed := LessonProgress{WatchedSeconds: 600, IsCompleted: true, CompletedAt: null.TimeFrom(earlier)}
	watching := LessonProgress{WatchedSeconds: 120}

	tests := []struct {
		name            string
		stored          LessonProgress
		in              LessonProgress
		wantCompleted   bool
		wantCompletedAt null.Time
		wantWatched     int
	}{
		{
			name:        "first record",
			in:          LessonProgress{WatchedSeconds: 30},
			wantWatched: 30,
		},
		{
			name:            "first completion",
			stored:          watching,
			in:              LessonProgress{WatchedSeconds: 600, IsCompleted: true},
			wantCompleted:   true,
			wantCompletedAt: null.TimeFrom(now),
			wantWatched:     600,
		},
		{
			name:            "rewatch keeps completion",
			stored:          completed,
			in:              LessonProgress{WatchedSeconds: 10},
			wantCompleted:   true,
			wantCompletedAt: null.TimeFrom(earlier),
			wantWatched:     10,
		},
		{
			name:            "completing again keeps the first date",
			stored:          completed,
			in:              LessonProgress{WatchedSeconds: 600, IsCompleted: true},
			wantCompleted:   true,
			wantCompletedAt: null.TimeFrom(earlier),
			wantWatched:     600,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.stored.Merge(tt.in, now)
			if got.IsCompleted != tt.wantCompleted {
				t.Errorf("Merge().IsCompleted = %v, want %v", got.IsCompleted, tt.wantCompleted)
			}
			if got.CompletedAt.Valid != tt.wantCompletedAt.Valid || !got.CompletedAt.Time.Equal(tt.wantCompletedAt.Time) {
				t.Errorf("Merge().CompletedAt = %v, want %v", got.CompletedAt, tt.wantCompletedAt)
			}
			if got.WatchedSeconds != tt.wantWatched {
				t.Errorf("Merge().WatchedSeconds = %d, want %d", got.WatchedSeconds, tt.wantWatched)
			}
			if !got.LastWatchedAt.Equal(now) {
				t.Errorf("Merge().LastWatchedAt = %v, want %v", got.LastWatchedAt, now)
			}
		})
	}
}

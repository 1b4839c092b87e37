package inmemdb

import (
	"context"
	"math"
	"sort"

	"github.com/trezcool/cursos/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CourseStats(_ context.Context) ([]report.CourseStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byCourse := make(map[string]*report.CourseStats, len(repo.db.courses))
	progressSum := make(map[string]float64, len(repo.db.courses))
	for id, c := range repo.db.courses {
		byCourse[id] = &report.CourseStats{CourseID: id, Title: c.Title, Status: c.Status, EnrolledCount: c.EnrolledCount}
	}
	for k, e := range repo.db.enrollments {
		if cs, ok := byCourse[k.b]; ok {
			cs.Enrollments++
			progressSum[k.b] += e.ProgressPercentage
			if e.ProgressPercentage >= 100 {
				cs.CompletedEnrollments++
			}
		}
	}
	for k := range repo.db.grants {
		if cs, ok := byCourse[k.b]; ok {
			cs.Grants++
		}
	}

	stats := make([]report.CourseStats, 0, len(byCourse))
	for id, cs := range byCourse {
		if cs.Enrollments > 0 {
			cs.AverageProgress = math.Round(progressSum[id]/float64(cs.Enrollments)*100) / 100
		}
		stats = append(stats, *cs)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Title < stats[j].Title })
	return stats, nil
}

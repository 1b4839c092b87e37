package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/activity"
	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/demand"
	"github.com/trezcool/cursos/core/enrollment"
	"github.com/trezcool/cursos/core/progress"
	"github.com/trezcool/cursos/core/user"
)

type (
	// pair keys the tables with a composite primary key.
	pair struct {
		a, b string
	}

	// DB keeps every table behind one lock, so that multi-table writes are atomic.
	DB struct {
		mu sync.RWMutex

		users       map[string]*user.User
		courses     map[string]*course.Course
		lessons     map[string]*course.Lesson
		grants      map[pair]*enrollment.Grant            // {user, course}
		enrollments map[pair]*enrollment.Enrollment       // {user, course}
		progress    map[pair]*progress.LessonProgress      // {user, lesson}
		assessments map[pair]*progress.AssessmentCompletion // {user, lesson}
		activities  map[string]*activity.Activity
		demands     map[string]*demand.Demand
	}
)

func Open() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		courses:     make(map[string]*course.Course),
		lessons:     make(map[string]*course.Lesson),
		grants:      make(map[pair]*enrollment.Grant),
		enrollments: make(map[pair]*enrollment.Enrollment),
		progress:    make(map[pair]*progress.LessonProgress),
		assessments: make(map[pair]*progress.AssessmentCompletion),
		activities:  make(map[string]*activity.Activity),
		demands:     make(map[string]*demand.Demand),
	}
}

// comparators return <0, 0 or >0 like strings.Compare.
type comparators map[string]func(i, j int) int

// orderBy sorts n elements by the given orderings, oldest first by default.
func orderBy(n int, swap func(i, j int), orderings []core.DBOrdering, cmps comparators, defaultField string) {
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: defaultField, Ascending: true}}
	}
	sort.Sort(&sorter{n: n, swap: swap, less: func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(i, j); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return false
	}})
}

type sorter struct {
	n    int
	swap func(i, j int)
	less func(i, j int) bool
}

func (s *sorter) Len() int           { return s.n }
func (s *sorter) Swap(i, j int)      { s.swap(i, j) }
func (s *sorter) Less(i, j int) bool { return s.less(i, j) }

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	return a - b
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inSlice(s string, slice []string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

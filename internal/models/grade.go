package models

// Letter grades accepted by the grading engine.
var ValidLetterGrades = []string{
	"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-",
	"D+", "D", "D-", "F", "W", "I", "P", "NP",
}

// GradePoints maps letter grades to their GPA weight. Grades mapping to nil
// (W, I, P, NP) carry no weight and are excluded from GPA computation.
var GradePoints = map[string]*float64{
	"A+": f(4.0), "A": f(4.0), "A-": f(3.7),
	"B+": f(3.3), "B": f(3.0), "B-": f(2.7),
	"C+": f(2.3), "C": f(2.0), "C-": f(1.7),
	"D+": f(1.3), "D": f(1.0), "D-": f(0.7),
	"F": f(0.0), "W": nil, "I": nil, "P": nil, "NP": nil,
}

func f(v float64) *float64 { return &v }

// IsValidLetterGrade reports whether the value belongs to the letter set.
func IsValidLetterGrade(grade string) bool {
	_, ok := GradePoints[grade]
	return ok
}

// GradeDistribution is a histogram of recorded grade values for a section.
type GradeDistribution map[string]int

// GradingSummary reports grading progress for a section.
type GradingSummary struct {
	TotalStudents      int     `json:"total_students"`
	Graded             int     `json:"graded"`
	Ungraded           int     `json:"ungraded"`
	PercentageComplete float64 `json:"percentage_complete"`
}

// RosterEntry is one student row in a section roster.
type RosterEntry struct {
	EnrollmentID  string           `db:"enrollment_id" json:"enrollment_id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	StudentNumber string           `db:"student_number" json:"student_number"`
	FullName      string           `db:"full_name" json:"full_name"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	Grade         *string          `db:"grade" json:"grade,omitempty"`
}

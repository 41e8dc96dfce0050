package models

// DashboardTotals are the headline counts of one account.
type DashboardTotals struct {
	ActiveStudents int `db:"active_students" json:"active_students"`
	Classes        int `db:"classes" json:"classes"`
	ActiveSubjects int `db:"active_subjects" json:"active_subjects"`
	Grades         int `db:"grades" json:"grades"`
}

// RecentGrade is a grade with the names needed to list it outside a class view.
type RecentGrade struct {
	GradeDetail
	StudentLastName  string `db:"student_last_name" json:"student_last_name"`
	StudentFirstName string `db:"student_first_name" json:"student_first_name"`
}

// DashboardSummary is the landing page payload of an account.
type DashboardSummary struct {
	Totals         DashboardTotals `json:"totals"`
	RecentStudents []StudentDetail `json:"recent_students"`
	RecentGrades   []RecentGrade   `json:"recent_grades"`
}

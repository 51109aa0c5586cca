package metadata

import "strconv"

// Entity is any reference record the filters and forms pick from.
type Entity interface {
	EntityID() int
	DisplayName() string
}

type (
	Batch struct {
		ID         int    `json:"batch_id"`
		Name       string `json:"batch_name"`
		ProgramID  int    `json:"program_id"`
		SemesterID int    `json:"semester_id"`
	}

	Course struct {
		ID          int    `json:"course_id"`
		Name        string `json:"course_name"`
		Code        string `json:"course_code"`
		Credits     int    `json:"credits"`
		IsPractical int    `json:"is_practical"` // 0/1 upstream
		TypeID      int    `json:"type_id"`
	}

	Faculty struct {
		ID                 int    `json:"faculty_id"`
		Name               string `json:"faculty_name"`
		WorkloadLimitHours int    `json:"workload_limit_hours"`
		NonTeachingPeriods string `json:"non_teaching_periods,omitempty"` // JSON-encoded list, as stored upstream
		Expertise          []int  `json:"expertise,omitempty"`
	}

	Student struct {
		ID            int    `json:"student_id"`
		Name          string `json:"student_name"`
		BatchID       int    `json:"batch_id,omitempty"`
		CourseChoices []int  `json:"course_choices,omitempty"`
	}

	Semester struct {
		ID   int    `json:"semester_id"`
		Name string `json:"semester_name"`
	}
)

var (
	_ Entity = Batch{}
	_ Entity = Course{}
	_ Entity = Faculty{}
	_ Entity = Student{}
	_ Entity = Semester{}
)

func (b Batch) EntityID() int       { return b.ID }
func (b Batch) DisplayName() string { return b.Name }

func (c Course) EntityID() int { return c.ID }
func (c Course) DisplayName() string {
	if c.Code == "" {
		return c.Name
	}
	return c.Code + " " + c.Name
}

func (c Course) Practical() bool { return c.IsPractical != 0 }

func (f Faculty) EntityID() int       { return f.ID }
func (f Faculty) DisplayName() string { return f.Name }

func (s Student) EntityID() int       { return s.ID }
func (s Student) DisplayName() string { return s.Name }

func (s Semester) EntityID() int       { return s.ID }
func (s Semester) DisplayName() string { return s.Name }

// Key returns the id as used in filter selections.
func Key(e Entity) string { return strconv.Itoa(e.EntityID()) }

// Create forms.
type (
	NewStudent struct {
		ID            int    `json:"student_id" validate:"required,gt=0"`
		Name          string `json:"student_name" validate:"required,person_name"`
		BatchID       int    `json:"batch_id" validate:"required,gt=0"`
		CourseChoices []int  `json:"course_choices" validate:"max=3,dive,gt=0"`
	}

	NewFaculty struct {
		ID                 int    `json:"faculty_id" validate:"required,gt=0"`
		Name               string `json:"faculty_name" validate:"required,person_name"`
		WorkloadLimitHours int    `json:"workload_limit_hours" validate:"required,gt=0"`
		Expertise          []int  `json:"expertise" validate:"dive,gt=0"`
	}
)

package domain

// Category is the primary subject area of a query
type Category string

const (
	CategoryCourse       Category = "course"
	CategoryProgram      Category = "program"
	CategoryAcademicInfo Category = "academic_info"
	CategorySchool       Category = "school"
	CategoryMixed        Category = "mixed"
	CategoryNone         Category = "none"
)

// QueryType refines the category with how the query was recognised
type QueryType string

const (
	QueryTypeSpecificCourse     QueryType = "specific_course"
	QueryTypeContextualFollowup QueryType = "contextual_followup"
	QueryTypeFollowup           QueryType = "followup"
	QueryTypeProgramSearch      QueryType = "program_search"
	QueryTypeSchoolSearch       QueryType = "school_search"
	QueryTypeAcademicInfo       QueryType = "academic_info"
	QueryTypeGeneralSearch      QueryType = "general_search"
	QueryTypeNone               QueryType = "none"
)

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryCourse, CategoryProgram, CategoryAcademicInfo,
		CategorySchool, CategoryMixed, CategoryNone:
		return true
	}
	return false
}

// IsValid reports whether t is one of the known query types.
func (t QueryType) IsValid() bool {
	switch t {
	case QueryTypeSpecificCourse, QueryTypeContextualFollowup, QueryTypeFollowup,
		QueryTypeProgramSearch, QueryTypeSchoolSearch, QueryTypeAcademicInfo,
		QueryTypeGeneralSearch, QueryTypeNone:
		return true
	}
	return false
}

// QueryEntities holds identifiers extracted from a query
type QueryEntities struct {
	CourseCode  string   `json:"course_code,omitempty"`
	ProgramCode string   `json:"program_code,omitempty"`
	ProgramName string   `json:"program_name,omitempty"`
	Keywords    []string `json:"keywords"`
}

// Codes returns the non-empty entity codes, course first.
func (e QueryEntities) Codes() []string {
	var codes []string
	if e.CourseCode != "" {
		codes = append(codes, e.CourseCode)
	}
	if e.ProgramCode != "" {
		codes = append(codes, e.ProgramCode)
	}
	return codes
}

// QueryClassification is the classifier's verdict for one query
type QueryClassification struct {
	PrimaryCategory  Category      `json:"primary_category"`
	QueryType        QueryType     `json:"query_type"`
	Entities         QueryEntities `json:"entities"`
	UsedPriorContext bool          `json:"used_prior_context"`
}

// Focus is the most recently referenced course or program in a conversation.
type Focus struct {
	CourseCode  string `json:"course_code,omitempty"`
	ProgramCode string `json:"program_code,omitempty"`
	ProgramName string `json:"program_name,omitempty"`
}

// IsZero reports whether nothing is in focus.
func (f Focus) IsZero() bool {
	return f.CourseCode == "" && f.ProgramCode == "" && f.ProgramName == ""
}

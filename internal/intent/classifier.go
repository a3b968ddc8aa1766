// Package intent classifies user queries and decides whether they warrant
// external retrieval. Everything here is deterministic keyword and pattern
// matching with no I/O.
package intent

import (
	"github.com/cloo-solutions/campusguide/internal/domain"
)

var contextualRefs = []string{
	"it", "its", "this course", "that course", "the course", "this subject", "that subject",
	"the subject", "the program", "this program", "that program", "the degree", "this degree",
	"coordinator", "prerequisite", "prerequisites", "assessment", "assessments", "credit points",
}

var followupPhrases = []string{
	"more", "again", "what else", "tell me more", "anything else", "and then", "go on",
	"continue", "more details", "more info",
}

var schoolTerms = []string{
	"school of", "faculty", "college of", "department", "schools",
}

var academicStems = []string{
	"enrol", "deadline", "policy", "policies", "fee", "census", "withdraw", "timetable",
	"exam", "graduation", "transcript", "extension", "special consideration", "academic calendar",
}

// Classify assigns a category, query type and entities to query. prior is the
// conversation's last referenced course or program and may be the zero value.
// The first matching rule wins.
func Classify(query string, prior domain.Focus) domain.QueryClassification {
	keywords := Keywords(query)
	if keywords == nil {
		keywords = []string{}
	}
	norm := normalize(query)

	if code := ExtractCourseCode(query); code != "" {
		return domain.QueryClassification{
			PrimaryCategory: domain.CategoryCourse,
			QueryType:       domain.QueryTypeSpecificCourse,
			Entities:        domain.QueryEntities{CourseCode: code, Keywords: keywords},
		}
	}

	programCode := ExtractProgramCode(query)
	programName := ExtractProgramName(query)
	namesProgram := programCode != "" || programName != ""

	// An explicitly named program overrides any reference back to the prior focus.
	if !namesProgram && !prior.IsZero() && containsPhrase(norm, contextualRefs) {
		return fromPrior(prior, domain.QueryTypeContextualFollowup, keywords)
	}

	if !namesProgram && prior.CourseCode != "" && containsPhrase(norm, followupPhrases) {
		return fromPrior(domain.Focus{CourseCode: prior.CourseCode}, domain.QueryTypeFollowup, keywords)
	}

	if namesProgram {
		return domain.QueryClassification{
			PrimaryCategory: domain.CategoryProgram,
			QueryType:       domain.QueryTypeProgramSearch,
			Entities: domain.QueryEntities{
				ProgramCode: programCode,
				ProgramName: programName,
				Keywords:    keywords,
			},
		}
	}

	if containsPhrase(norm, schoolTerms) {
		return domain.QueryClassification{
			PrimaryCategory: domain.CategorySchool,
			QueryType:       domain.QueryTypeSchoolSearch,
			Entities:        domain.QueryEntities{Keywords: keywords},
		}
	}

	if containsPrefix(norm, academicStems) || containsPhrase(norm, academicStems) {
		return domain.QueryClassification{
			PrimaryCategory: domain.CategoryAcademicInfo,
			QueryType:       domain.QueryTypeAcademicInfo,
			Entities:        domain.QueryEntities{Keywords: keywords},
		}
	}

	if len(keywords) == 0 {
		return domain.QueryClassification{
			PrimaryCategory: domain.CategoryNone,
			QueryType:       domain.QueryTypeNone,
			Entities:        domain.QueryEntities{Keywords: keywords},
		}
	}

	return domain.QueryClassification{
		PrimaryCategory: domain.CategoryMixed,
		QueryType:       domain.QueryTypeGeneralSearch,
		Entities:        domain.QueryEntities{Keywords: keywords},
	}
}

func fromPrior(prior domain.Focus, qt domain.QueryType, keywords []string) domain.QueryClassification {
	c := domain.QueryClassification{
		QueryType:        qt,
		UsedPriorContext: true,
		Entities:         domain.QueryEntities{Keywords: keywords},
	}
	if prior.CourseCode != "" {
		c.PrimaryCategory = domain.CategoryCourse
		c.Entities.CourseCode = prior.CourseCode
		return c
	}
	c.PrimaryCategory = domain.CategoryProgram
	c.Entities.ProgramCode = prior.ProgramCode
	c.Entities.ProgramName = prior.ProgramName
	return c
}

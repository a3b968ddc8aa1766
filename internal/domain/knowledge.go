package domain

import (
	"fmt"
	"time"
)

// KnowledgeCategory classifies a crawled knowledge item
type KnowledgeCategory string

const (
	KnowledgeCategoryCourseInfo     KnowledgeCategory = "course-information"
	KnowledgeCategorySubjectInfo    KnowledgeCategory = "subject-information"
	KnowledgeCategoryPolicies       KnowledgeCategory = "policies"
	KnowledgeCategoryStudentSupport KnowledgeCategory = "student-support"
	KnowledgeCategoryEnrollment     KnowledgeCategory = "enrollment"
	KnowledgeCategoryFees           KnowledgeCategory = "fees-scholarships"
	KnowledgeCategoryAcademicInfo   KnowledgeCategory = "academic-info"
	KnowledgeCategoryStudentLife    KnowledgeCategory = "student-life"
	KnowledgeCategoryResearch       KnowledgeCategory = "research"
	KnowledgeCategoryCareers        KnowledgeCategory = "careers"
	KnowledgeCategoryInternational  KnowledgeCategory = "international"
	KnowledgeCategoryOnline         KnowledgeCategory = "online-learning"
	KnowledgeCategoryFAQ            KnowledgeCategory = "faq"
	KnowledgeCategoryForms          KnowledgeCategory = "forms"
	KnowledgeCategoryContact        KnowledgeCategory = "contact"
	KnowledgeCategoryGeneral        KnowledgeCategory = "general-information"
)

// Knowledge item limits applied at ingest
const (
	MaxKnowledgeTitleLen   = 500
	MaxKnowledgeContentLen = 5000
	MaxKnowledgeTags       = 20
	MinKnowledgePriority   = 1
	MaxKnowledgePriority   = 10
)

// KnowledgeItem is a curated institutional record searched by the knowledge-store strategy
type KnowledgeItem struct {
	ID             string
	Title          string
	Content        string
	Category       KnowledgeCategory
	Tags           []string
	Priority       int
	SourceURL      string
	IsActive       bool
	EntityCodes    []string
	ContentHash    string
	StructuredData map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewKnowledgeItem creates a new KnowledgeItem instance, enforcing length limits
func NewKnowledgeItem(
	id, title, content string,
	category KnowledgeCategory,
	tags []string,
	priority int,
	sourceURL string,
	createdAt, updatedAt time.Time,
) *KnowledgeItem {
	if len(tags) > MaxKnowledgeTags {
		tags = tags[:MaxKnowledgeTags]
	}
	return &KnowledgeItem{
		ID:        id,
		Title:     TruncateRunes(title, MaxKnowledgeTitleLen),
		Content:   TruncateRunes(content, MaxKnowledgeContentLen),
		Category:  category,
		Tags:      tags,
		Priority:  priority,
		SourceURL: sourceURL,
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge item ID is required")
	}

	if k.Title == "" {
		return fmt.Errorf("knowledge item Title is required")
	}

	if k.SourceURL == "" {
		return fmt.Errorf("knowledge item SourceURL is required")
	}

	if !IsValidKnowledgeCategory(k.Category) {
		return fmt.Errorf("knowledge item Category is invalid: %s", k.Category)
	}

	if k.Priority < MinKnowledgePriority || k.Priority > MaxKnowledgePriority {
		return fmt.Errorf("knowledge item Priority must be between %d and %d", MinKnowledgePriority, MaxKnowledgePriority)
	}

	if len(k.Tags) > MaxKnowledgeTags {
		return fmt.Errorf("knowledge item has more than %d tags", MaxKnowledgeTags)
	}

	return nil
}

// IsValidKnowledgeCategory checks if a KnowledgeCategory is valid
func IsValidKnowledgeCategory(c KnowledgeCategory) bool {
	switch c {
	case KnowledgeCategoryCourseInfo, KnowledgeCategorySubjectInfo, KnowledgeCategoryPolicies,
		KnowledgeCategoryStudentSupport, KnowledgeCategoryEnrollment, KnowledgeCategoryFees,
		KnowledgeCategoryAcademicInfo, KnowledgeCategoryStudentLife, KnowledgeCategoryResearch,
		KnowledgeCategoryCareers, KnowledgeCategoryInternational, KnowledgeCategoryOnline,
		KnowledgeCategoryFAQ, KnowledgeCategoryForms, KnowledgeCategoryContact,
		KnowledgeCategoryGeneral:
		return true
	}
	return false
}

package dto

import (
	"time"

	"github.com/google/uuid"
)

type RelatedSkillMatch struct {
	CandidateSkill string `json:"candidateSkill"`
	JobSkill       string `json:"jobSkill"`
	Reasoning      string `json:"reasoning"`
}

// JobMatchDTO is one ranked match as returned to the caller. The external job
// id is the caller's handle back into the catalog that owns the full record.
type JobMatchDTO struct {
	ExternalJobID      string              `json:"external_job_id"`
	SemanticSimilarity float64             `json:"semantic_similarity"`
	SkillMatchScore    float64             `json:"skill_match_score"`
	CombinedScore      float64             `json:"combined_score"`
	DirectMatches      []string            `json:"direct_matches"`
	RelatedMatches     []RelatedSkillMatch `json:"related_matches"`
	MissingSkills      []string            `json:"missing_skills"`
	MatchReasoning     string              `json:"match_reasoning"`
}

type ResumeDTO struct {
	ID              uuid.UUID `json:"id"`
	Filename        string    `json:"filename"`
	Skills          []string  `json:"skills"`
	ExperienceYears float64   `json:"experience_years"`
	CreatedAt       time.Time `json:"created_at"`
}

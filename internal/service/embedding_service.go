package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/atwlabs/semantic-job-matcher/internal/analyzer"
	"github.com/atwlabs/semantic-job-matcher/internal/dto"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// SkillAnalysis is the outcome of comparing candidate skills against a job's
// required skills, either via the LLM or the local exact-match fallback.
type SkillAnalysis struct {
	DirectMatches  []string
	RelatedMatches []dto.RelatedSkillMatch
	MissingSkills  []string
	MatchScore     float64
	Reasoning      string
}

// EmbeddingService is the gateway to the external provider: it builds the
// canonical text representations, produces vectors and judges skill overlap.
type EmbeddingService struct {
	gemini GeminiServiceInterface
	chat   ChatServiceInterface
	logger *zap.Logger
}

func NewEmbeddingService(gemini GeminiServiceInterface, chat ChatServiceInterface, logger *zap.Logger) *EmbeddingService {
	return &EmbeddingService{gemini: gemini, chat: chat, logger: logger}
}

func (s *EmbeddingService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return s.gemini.GenerateEmbedding(ctx, text)
}

func (s *EmbeddingService) CreateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return s.gemini.GenerateBatchEmbeddings(ctx, texts)
}

// BuildJobText produces the canonical, field-stable representation of a job
// posting. Embeddings for the same posting must not depend on field order.
func (s *EmbeddingService) BuildJobText(job dto.JobRecord) string {
	parts := []string{
		fmt.Sprintf("Job Title: %s", job.Title),
		fmt.Sprintf("Company: %s", job.Company),
		fmt.Sprintf("Description: %s", job.Description),
		fmt.Sprintf("Required Skills: %s", strings.Join(job.RequiredSkills, ", ")),
	}

	if len(job.PreferredSkills) > 0 {
		parts = append(parts, fmt.Sprintf("Preferred Skills: %s", strings.Join(job.PreferredSkills, ", ")))
	}
	if job.ExperienceYears > 0 {
		parts = append(parts, fmt.Sprintf("Experience Required: %d years", job.ExperienceYears))
	}
	if job.Location != "" {
		parts = append(parts, fmt.Sprintf("Location: %s", job.Location))
	}
	if job.EmploymentType != "" {
		parts = append(parts, fmt.Sprintf("Employment Type: %s", job.EmploymentType))
	}

	return strings.Join(parts, "\n")
}

// BuildResumeText enriches the raw resume text with the analyzer's findings so
// the embedding captures both the prose and the extracted structure.
func (s *EmbeddingService) BuildResumeText(rawText string, analysis analyzer.Analysis) string {
	parts := []string{rawText}

	if len(analysis.Skills) > 0 {
		parts = append(parts, fmt.Sprintf("\nKey Technical Skills: %s", strings.Join(analysis.Skills, ", ")))
	}
	if analysis.ExperienceYears > 0 {
		parts = append(parts, fmt.Sprintf("Total Experience: %.1f years", analysis.ExperienceYears))
	}

	return strings.Join(parts, "\n")
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// AnalyzeSkillOverlap asks the LLM to judge how well the candidate's skills
// cover the job's required skills. Any provider failure or malformed response
// degrades to a local exact-match computation; it never returns an error.
func (s *EmbeddingService) AnalyzeSkillOverlap(ctx context.Context, candidateSkills, requiredSkills []string) SkillAnalysis {
	if len(requiredSkills) == 0 {
		return s.basicSkillMatch(candidateSkills, requiredSkills)
	}

	prompt := fmt.Sprintf(`Analyze skill match between candidate and job.

Candidate: %s
Required: %s

Return JSON only:
{
  "directMatches": ["exact matches"],
  "relatedMatches": [{"candidateSkill": "X", "jobSkill": "Y", "reasoning": "brief"}],
  "missingSkills": ["missing"],
  "matchScore": 0-100,
  "reasoning": "1 sentence"
}`, strings.Join(candidateSkills, ", "), strings.Join(requiredSkills, ", "))

	content, err := s.chat.ChatJSON(ctx, prompt)
	if err != nil {
		s.logger.Warn("skill analysis call failed, using local matching", zap.Error(err))
		return s.basicSkillMatch(candidateSkills, requiredSkills)
	}

	analysis, ok := parseSkillAnalysis(content)
	if !ok {
		s.logger.Warn("skill analysis response was not valid JSON, using local matching")
		return s.basicSkillMatch(candidateSkills, requiredSkills)
	}
	return analysis
}

func parseSkillAnalysis(content string) (SkillAnalysis, bool) {
	content = strings.TrimSpace(content)
	if m := fencedJSONRe.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	parsed := gjson.Parse(content)
	if !parsed.IsObject() {
		return SkillAnalysis{}, false
	}

	score := parsed.Get("matchScore").Float()
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	analysis := SkillAnalysis{
		DirectMatches: stringSlice(parsed.Get("directMatches")),
		MissingSkills: stringSlice(parsed.Get("missingSkills")),
		MatchScore:    score,
		Reasoning:     parsed.Get("reasoning").String(),
	}
	for _, rm := range parsed.Get("relatedMatches").Array() {
		analysis.RelatedMatches = append(analysis.RelatedMatches, dto.RelatedSkillMatch{
			CandidateSkill: rm.Get("candidateSkill").String(),
			JobSkill:       rm.Get("jobSkill").String(),
			Reasoning:      rm.Get("reasoning").String(),
		})
	}
	return analysis, true
}

func stringSlice(result gjson.Result) []string {
	var out []string
	for _, item := range result.Array() {
		out = append(out, item.String())
	}
	return out
}

// basicSkillMatch is the provider-free fallback: case-insensitive exact
// matching with a coverage percentage.
func (s *EmbeddingService) basicSkillMatch(candidateSkills, requiredSkills []string) SkillAnalysis {
	var direct []string
	for _, skill := range candidateSkills {
		for _, required := range requiredSkills {
			if strings.EqualFold(skill, required) {
				direct = append(direct, skill)
				break
			}
		}
	}

	var missing []string
	for _, required := range requiredSkills {
		found := false
		for _, d := range direct {
			if strings.EqualFold(d, required) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, required)
		}
	}

	score := 0.0
	if len(requiredSkills) > 0 {
		score = float64(len(direct)) / float64(len(requiredSkills)) * 100
	}

	return SkillAnalysis{
		DirectMatches: direct,
		MissingSkills: missing,
		MatchScore:    score,
		Reasoning:     "Basic skill matching applied",
	}
}

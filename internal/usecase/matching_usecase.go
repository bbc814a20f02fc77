package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atwlabs/semantic-job-matcher/internal/analyzer"
	"github.com/atwlabs/semantic-job-matcher/internal/config"
	"github.com/atwlabs/semantic-job-matcher/internal/dto"
	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"github.com/atwlabs/semantic-job-matcher/internal/service"
	"github.com/atwlabs/semantic-job-matcher/internal/util"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Dedup key is the first 100 characters; equality is then verified on the
	// first 1000 to rule out prefix collisions before trusting the hit.
	textPrefixLen = 100
	textVerifyLen = 1000

	cachedReasoning      = "Cached result from previous analysis"
	lightweightReasoning = "Skills were not compared in lightweight matching mode"
)

var ErrResumeNotFound = errors.New("resume not found")

type ResumeStore interface {
	Create(resume *model.Resume) error
	FindByID(tenantID, id uuid.UUID) (*model.Resume, error)
	FindByTextPrefix(tenantID uuid.UUID, prefix string) (*model.Resume, error)
	FindByTextPrefixAndEmail(tenantID uuid.UUID, prefix, email string) (*model.Resume, error)
	UpdateContact(tenantID, id uuid.UUID, email, ip string) (*model.Resume, error)
	Stats(tenantID uuid.UUID) (dto.TenantAnalytics, error)
}

type JobEmbeddingStore interface {
	Upsert(emb *model.JobEmbedding) (created bool, err error)
	ListByTenant(tenantID uuid.UUID) ([]model.JobEmbedding, error)
	DeleteStale(tenantID uuid.UUID, keepIDs []string) (int64, error)
}

type JobMatchStore interface {
	Upsert(match *model.JobMatch) error
	ListByResume(tenantID, resumeID uuid.UUID, limit int) ([]model.JobMatch, error)
}

type EmbeddingGateway interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	BuildJobText(job dto.JobRecord) string
	BuildResumeText(rawText string, analysis analyzer.Analysis) string
	AnalyzeSkillOverlap(ctx context.Context, candidateSkills, requiredSkills []string) service.SkillAnalysis
}

// MatchingUsecase implements the caller-facing contract: StoreResume,
// SyncJobs and FindMatches. All collaborators are constructor-injected.
type MatchingUsecase struct {
	resumes       ResumeStore
	jobEmbeddings JobEmbeddingStore
	jobMatches    JobMatchStore
	embeddings    EmbeddingGateway
	logger        *zap.Logger
	cfg           *config.MatchingConfig
}

func NewMatchingUsecase(
	resumes ResumeStore,
	jobEmbeddings JobEmbeddingStore,
	jobMatches JobMatchStore,
	embeddings EmbeddingGateway,
	logger *zap.Logger,
	cfg *config.MatchingConfig,
) *MatchingUsecase {
	return &MatchingUsecase{
		resumes:       resumes,
		jobEmbeddings: jobEmbeddings,
		jobMatches:    jobMatches,
		embeddings:    embeddings,
		logger:        logger,
		cfg:           cfg,
	}
}

// StoreResume persists a resume for the tenant, skipping the provider call
// entirely when the same document was already processed (dedup cache).
func (uc *MatchingUsecase) StoreResume(ctx context.Context, rawText, filename string, tenantID uuid.UUID, email, ip string) (*model.Resume, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, errors.New("resume text is empty")
	}

	email = normalizeEmail(email)
	ip = normalizeIP(ip)
	prefix := strings.TrimSpace(firstRunes(rawText, textPrefixLen))

	// Strong key first: same text and same email means a full cache hit.
	if email != "" {
		existing, err := uc.resumes.FindByTextPrefixAndEmail(tenantID, prefix, email)
		if err == nil && sameText(existing.RawText, rawText) {
			uc.logger.Info("resume dedup: full cache hit",
				zap.String("resume_id", existing.ID.String()),
				zap.String("tenant_id", tenantID.String()))
			if ip != "" {
				return uc.resumes.UpdateContact(tenantID, existing.ID, "", ip)
			}
			return existing, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			// A broken lookup must not block the upload; fail open to a miss.
			uc.logger.Warn("resume dedup lookup failed, treating as miss", zap.Error(err))
		}
	}

	// Weak key: same text under any email. Contact data is merged, never wiped.
	existing, err := uc.resumes.FindByTextPrefix(tenantID, prefix)
	if err == nil && sameText(existing.RawText, rawText) {
		uc.logger.Info("resume dedup: partial cache hit",
			zap.String("resume_id", existing.ID.String()),
			zap.String("tenant_id", tenantID.String()))
		return uc.resumes.UpdateContact(tenantID, existing.ID, email, ip)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		uc.logger.Warn("resume dedup lookup failed, treating as miss", zap.Error(err))
	}

	// Cache miss: the only path that costs a provider call.
	analysis := analyzer.Analyze(rawText)
	resumeText := uc.embeddings.BuildResumeText(rawText, analysis)

	vector, err := uc.embeddings.CreateEmbedding(ctx, resumeText)
	if err != nil {
		return nil, fmt.Errorf("embed resume: %w", err)
	}

	resume := &model.Resume{
		TenantID:        tenantID,
		Filename:        filename,
		RawText:         rawText,
		TextPrefix:      prefix,
		Skills:          analysis.Skills,
		ExperienceYears: analysis.ExperienceYears,
		Embedding:       pgvector.NewVector(vector),
		Email:           email,
		IPAddress:       ip,
		CreatedAt:       time.Now(),
	}
	if err := uc.resumes.Create(resume); err != nil {
		return nil, fmt.Errorf("store resume: %w", err)
	}

	uc.logger.Info("new resume stored",
		zap.String("resume_id", resume.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.Int("skills", len(resume.Skills)),
		zap.Float64("experience_years", resume.ExperienceYears),
		zap.String("experience_source", analysis.ExperienceSource))
	return resume, nil
}

type validJob struct {
	job  dto.JobRecord
	text string
}

// SyncJobs aligns the tenant's embedding index with the catalog payload:
// embed in batches, upsert, then prune everything not in this payload.
func (uc *MatchingUsecase) SyncJobs(ctx context.Context, jobs []dto.JobRecord, tenantID uuid.UUID) (dto.SyncResult, error) {
	result := dto.SyncResult{Total: len(jobs)}

	validJobs := uc.filterValidJobs(jobs)
	if len(validJobs) == 0 {
		// Nothing to compare against; pruning here would wipe the index on a
		// malformed payload.
		uc.logger.Warn("sync received no valid jobs, skipping prune",
			zap.String("tenant_id", tenantID.String()), zap.Int("total", len(jobs)))
		return result, nil
	}

	processedIDs := make([]string, 0, len(validJobs))
	batchSize := uc.cfg.SyncBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	for start := 0; start < len(validJobs); start += batchSize {
		end := start + batchSize
		if end > len(validJobs) {
			end = len(validJobs)
		}
		batch := validJobs[start:end]

		uc.syncBatch(ctx, batch, tenantID, &result, &processedIDs)

		if end < len(validJobs) && uc.cfg.SyncBatchDelay > 0 {
			time.Sleep(uc.cfg.SyncBatchDelay)
		}
	}
	result.Processed = len(processedIDs)

	if len(processedIDs) > 0 {
		deleted, err := uc.jobEmbeddings.DeleteStale(tenantID, processedIDs)
		if err != nil {
			uc.logger.Error("pruning stale job embeddings failed", zap.Error(err))
		} else {
			result.Deleted = int(deleted)
		}
	}

	uc.logger.Info("job sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("total", result.Total),
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted))
	return result, nil
}

func (uc *MatchingUsecase) filterValidJobs(jobs []dto.JobRecord) []validJob {
	valid := make([]validJob, 0, len(jobs))
	for _, job := range jobs {
		if job.ID == "" {
			uc.logger.Warn("skipping job without id", zap.String("title", job.Title))
			continue
		}
		if job.Title == "" && job.Description == "" {
			uc.logger.Warn("skipping job without title and description", zap.String("job_id", job.ID))
			continue
		}
		text := uc.embeddings.BuildJobText(job)
		if strings.TrimSpace(text) == "" {
			uc.logger.Warn("skipping job with empty canonical text", zap.String("job_id", job.ID))
			continue
		}
		valid = append(valid, validJob{job: job, text: text})
	}
	return valid
}

// syncBatch embeds one batch. A batch-level failure or a count mismatch
// degrades to sequential per-item calls; individual failures are skipped.
func (uc *MatchingUsecase) syncBatch(ctx context.Context, batch []validJob, tenantID uuid.UUID, result *dto.SyncResult, processedIDs *[]string) {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.text
	}

	vectors, err := uc.embeddings.CreateBatchEmbeddings(ctx, texts)
	if err != nil || len(vectors) != len(batch) {
		if err != nil {
			uc.logger.Warn("batch embedding failed, falling back to per-item calls", zap.Error(err))
		} else {
			uc.logger.Warn("batch embedding count mismatch, falling back to per-item calls",
				zap.Int("expected", len(batch)), zap.Int("got", len(vectors)))
		}
		for _, item := range batch {
			vector, err := uc.embeddings.CreateEmbedding(ctx, item.text)
			if err != nil {
				uc.logger.Warn("embedding job failed, skipping",
					zap.String("job_id", item.job.ID), zap.Error(err))
				continue
			}
			uc.upsertJobEmbedding(item.job, vector, tenantID, result, processedIDs)
		}
		return
	}

	for i, item := range batch {
		if len(vectors[i]) == 0 {
			uc.logger.Warn("skipping job with empty embedding", zap.String("job_id", item.job.ID))
			continue
		}
		uc.upsertJobEmbedding(item.job, vectors[i], tenantID, result, processedIDs)
	}
}

func (uc *MatchingUsecase) upsertJobEmbedding(job dto.JobRecord, vector []float32, tenantID uuid.UUID, result *dto.SyncResult, processedIDs *[]string) {
	created, err := uc.jobEmbeddings.Upsert(&model.JobEmbedding{
		TenantID:       tenantID,
		ExternalJobID:  job.ID,
		RequiredSkills: job.RequiredSkills,
		Embedding:      pgvector.NewVector(vector),
	})
	if err != nil {
		uc.logger.Warn("saving job embedding failed, skipping",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}
	*processedIDs = append(*processedIDs, job.ID)
}

type scoredJob struct {
	job        model.JobEmbedding
	similarity float64
}

// FindMatches ranks the tenant's indexed jobs against a stored resume.
// Previously persisted results are returned as-is with no provider calls.
func (uc *MatchingUsecase) FindMatches(ctx context.Context, resumeID, tenantID uuid.UUID, limit int, threshold float64) ([]dto.JobMatchDTO, error) {
	if limit <= 0 {
		limit = uc.cfg.DefaultLimit
	}
	if threshold <= 0 {
		threshold = uc.cfg.DefaultThreshold
	}

	cached, err := uc.jobMatches.ListByResume(tenantID, resumeID, limit)
	if err != nil {
		uc.logger.Warn("match cache lookup failed, recomputing", zap.Error(err))
	}
	if len(cached) > 0 {
		uc.logger.Info("match cache hit",
			zap.String("resume_id", resumeID.String()), zap.Int("matches", len(cached)))
		return formatCachedMatches(cached), nil
	}

	resume, err := uc.resumes.FindByID(tenantID, resumeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResumeNotFound
		}
		return nil, fmt.Errorf("load resume: %w", err)
	}

	jobs, err := uc.jobEmbeddings.ListByTenant(tenantID)
	if err != nil {
		return nil, fmt.Errorf("load job embeddings: %w", err)
	}

	resumeVector := resume.Embedding.Slice()
	candidates := make([]scoredJob, 0, len(jobs))
	for _, job := range jobs {
		similarity := util.CosineSimilarity(resumeVector, job.Embedding.Slice())
		if similarity >= threshold {
			candidates = append(candidates, scoredJob{job: job, similarity: similarity})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].job.ExternalJobID < candidates[j].job.ExternalJobID
	})

	// Enrichment re-ranks, so give it a wider candidate pool.
	candidateLimit := limit
	if uc.cfg.SkillAnalysis {
		candidateLimit = limit * 2
	}
	if len(candidates) > candidateLimit {
		candidates = candidates[:candidateLimit]
	}

	results := make([]dto.JobMatchDTO, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, uc.scoreCandidate(ctx, resume, c))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].ExternalJobID < results[j].ExternalJobID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	for _, match := range results {
		uc.persistMatch(resumeID, tenantID, match)
	}

	return results, nil
}

func (uc *MatchingUsecase) scoreCandidate(ctx context.Context, resume *model.Resume, c scoredJob) dto.JobMatchDTO {
	if !uc.cfg.SkillAnalysis {
		return dto.JobMatchDTO{
			ExternalJobID:      c.job.ExternalJobID,
			SemanticSimilarity: util.Round3(c.similarity),
			CombinedScore:      util.Round3(c.similarity),
			MatchReasoning:     lightweightReasoning,
		}
	}

	analysis := uc.embeddings.AnalyzeSkillOverlap(ctx, resume.Skills, c.job.RequiredSkills)

	// 70% semantic similarity, 30% skill overlap.
	combined := c.similarity*0.7 + (analysis.MatchScore/100)*0.3

	return dto.JobMatchDTO{
		ExternalJobID:      c.job.ExternalJobID,
		SemanticSimilarity: util.Round3(c.similarity),
		SkillMatchScore:    analysis.MatchScore,
		CombinedScore:      util.Round3(combined),
		DirectMatches:      analysis.DirectMatches,
		RelatedMatches:     analysis.RelatedMatches,
		MissingSkills:      analysis.MissingSkills,
		MatchReasoning:     analysis.Reasoning,
	}
}

// persistMatch upserts one ranked result so the next FindMatches call is a
// cache hit. Failures are logged, not surfaced; the ranking itself succeeded.
func (uc *MatchingUsecase) persistMatch(resumeID, tenantID uuid.UUID, match dto.JobMatchDTO) {
	matchedSkills := append([]string{}, match.DirectMatches...)
	for _, rm := range match.RelatedMatches {
		matchedSkills = append(matchedSkills, rm.CandidateSkill)
	}

	err := uc.jobMatches.Upsert(&model.JobMatch{
		TenantID:      tenantID,
		ResumeID:      resumeID,
		ExternalJobID: match.ExternalJobID,
		CombinedScore: match.CombinedScore,
		MatchedSkills: matchedSkills,
	})
	if err != nil {
		uc.logger.Warn("persisting job match failed",
			zap.String("external_job_id", match.ExternalJobID), zap.Error(err))
	}
}

// GetStoredMatches is the read-only view of the match cache.
func (uc *MatchingUsecase) GetStoredMatches(tenantID, resumeID uuid.UUID, limit int) ([]dto.JobMatchDTO, error) {
	if limit <= 0 {
		limit = uc.cfg.DefaultLimit
	}
	matches, err := uc.jobMatches.ListByResume(tenantID, resumeID, limit)
	if err != nil {
		return nil, fmt.Errorf("load stored matches: %w", err)
	}
	return formatCachedMatches(matches), nil
}

// GetAnalytics reports per-tenant upload statistics.
func (uc *MatchingUsecase) GetAnalytics(tenantID uuid.UUID) (dto.TenantAnalytics, error) {
	return uc.resumes.Stats(tenantID)
}

func formatCachedMatches(matches []model.JobMatch) []dto.JobMatchDTO {
	out := make([]dto.JobMatchDTO, 0, len(matches))
	for _, m := range matches {
		out = append(out, dto.JobMatchDTO{
			ExternalJobID:      m.ExternalJobID,
			SemanticSimilarity: m.CombinedScore,
			SkillMatchScore:    util.Round3(m.CombinedScore * 100),
			CombinedScore:      m.CombinedScore,
			DirectMatches:      m.MatchedSkills,
			MatchReasoning:     cachedReasoning,
		})
	}
	return out
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "undefined" || email == "null" {
		return ""
	}
	return email
}

func normalizeIP(ip string) string {
	ip = strings.TrimSpace(strings.TrimPrefix(ip, "::ffff:"))
	if ip == "unknown" {
		return ""
	}
	return ip
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func sameText(a, b string) bool {
	return firstRunes(a, textVerifyLen) == firstRunes(b, textVerifyLen)
}

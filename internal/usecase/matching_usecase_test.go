package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/atwlabs/semantic-job-matcher/internal/analyzer"
	"github.com/atwlabs/semantic-job-matcher/internal/config"
	"github.com/atwlabs/semantic-job-matcher/internal/dto"
	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"github.com/atwlabs/semantic-job-matcher/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeResumeStore struct {
	rows []*model.Resume
}

func (f *fakeResumeStore) Create(resume *model.Resume) error {
	if resume.ID == uuid.Nil {
		resume.ID = uuid.New()
	}
	f.rows = append(f.rows, resume)
	return nil
}

func (f *fakeResumeStore) FindByID(tenantID, id uuid.UUID) (*model.Resume, error) {
	for _, r := range f.rows {
		if r.TenantID == tenantID && r.ID == id {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResumeStore) FindByTextPrefix(tenantID uuid.UUID, prefix string) (*model.Resume, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.TenantID == tenantID && r.TextPrefix == prefix {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResumeStore) FindByTextPrefixAndEmail(tenantID uuid.UUID, prefix, email string) (*model.Resume, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.TenantID == tenantID && r.TextPrefix == prefix && r.Email == email {
			return r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeResumeStore) UpdateContact(tenantID, id uuid.UUID, email, ip string) (*model.Resume, error) {
	r, err := f.FindByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if email != "" {
		r.Email = email
	}
	if ip != "" {
		r.IPAddress = ip
	}
	return r, nil
}

func (f *fakeResumeStore) Stats(tenantID uuid.UUID) (dto.TenantAnalytics, error) {
	var stats dto.TenantAnalytics
	emails := map[string]bool{}
	ips := map[string]bool{}
	for _, r := range f.rows {
		if r.TenantID != tenantID {
			continue
		}
		stats.TotalUploads++
		if r.Email != "" {
			stats.UploadsWithEmail++
			emails[r.Email] = true
		}
		if r.IPAddress != "" {
			stats.UploadsWithIP++
			ips[r.IPAddress] = true
		}
	}
	stats.UniqueEmails = int64(len(emails))
	stats.UniqueIPs = int64(len(ips))
	return stats, nil
}

type fakeJobEmbeddingStore struct {
	rows []model.JobEmbedding
}

func (f *fakeJobEmbeddingStore) Upsert(emb *model.JobEmbedding) (bool, error) {
	for i, row := range f.rows {
		if row.TenantID == emb.TenantID && row.ExternalJobID == emb.ExternalJobID {
			f.rows[i].RequiredSkills = emb.RequiredSkills
			f.rows[i].Embedding = emb.Embedding
			return false, nil
		}
	}
	emb.ID = uuid.New()
	f.rows = append(f.rows, *emb)
	return true, nil
}

func (f *fakeJobEmbeddingStore) ListByTenant(tenantID uuid.UUID) ([]model.JobEmbedding, error) {
	var out []model.JobEmbedding
	for _, row := range f.rows {
		if row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeJobEmbeddingStore) DeleteStale(tenantID uuid.UUID, keepIDs []string) (int64, error) {
	if len(keepIDs) == 0 {
		return 0, errors.New("refusing to prune without keep ids")
	}
	keep := map[string]bool{}
	for _, id := range keepIDs {
		keep[id] = true
	}
	var kept []model.JobEmbedding
	var deleted int64
	for _, row := range f.rows {
		if row.TenantID == tenantID && !keep[row.ExternalJobID] {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return deleted, nil
}

type fakeJobMatchStore struct {
	rows []model.JobMatch
}

func (f *fakeJobMatchStore) Upsert(match *model.JobMatch) error {
	for i, row := range f.rows {
		if row.TenantID == match.TenantID && row.ResumeID == match.ResumeID && row.ExternalJobID == match.ExternalJobID {
			f.rows[i].CombinedScore = match.CombinedScore
			f.rows[i].MatchedSkills = match.MatchedSkills
			return nil
		}
	}
	match.ID = uuid.New()
	f.rows = append(f.rows, *match)
	return nil
}

func (f *fakeJobMatchStore) ListByResume(tenantID, resumeID uuid.UUID, limit int) ([]model.JobMatch, error) {
	var out []model.JobMatch
	for _, row := range f.rows {
		if row.TenantID == tenantID && row.ResumeID == resumeID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedScore > out[j].CombinedScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeGateway struct {
	vectors      map[string][]float32
	embedErrs    map[string]error
	batchErr     error
	batchShort   bool
	analysis     func(candidateSkills, requiredSkills []string) service.SkillAnalysis
	embedCalls   int
	batchCalls   int
	analyzeCalls int
}

func (f *fakeGateway) vectorFor(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	return []float32{1, 0}
}

func (f *fakeGateway) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if err := f.embedErrs[text]; err != nil {
		return nil, err
	}
	return f.vectorFor(text), nil
}

func (f *fakeGateway) CreateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectorFor(text)
	}
	if f.batchShort && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeGateway) BuildJobText(job dto.JobRecord) string {
	return "job:" + job.ID
}

func (f *fakeGateway) BuildResumeText(rawText string, analysis analyzer.Analysis) string {
	return rawText
}

func (f *fakeGateway) AnalyzeSkillOverlap(ctx context.Context, candidateSkills, requiredSkills []string) service.SkillAnalysis {
	f.analyzeCalls++
	if f.analysis != nil {
		return f.analysis(candidateSkills, requiredSkills)
	}
	return service.SkillAnalysis{Reasoning: "Basic skill matching applied"}
}

type fixture struct {
	resumes *fakeResumeStore
	jobs    *fakeJobEmbeddingStore
	matches *fakeJobMatchStore
	gateway *fakeGateway
	uc      *MatchingUsecase
}

func newFixture(skillAnalysis bool) *fixture {
	f := &fixture{
		resumes: &fakeResumeStore{},
		jobs:    &fakeJobEmbeddingStore{},
		matches: &fakeJobMatchStore{},
		gateway: &fakeGateway{vectors: map[string][]float32{}, embedErrs: map[string]error{}},
	}
	f.uc = NewMatchingUsecase(f.resumes, f.jobs, f.matches, f.gateway, zap.NewNop(), &config.MatchingConfig{
		SyncBatchSize:    500,
		SkillAnalysis:    skillAnalysis,
		DefaultLimit:     10,
		DefaultThreshold: 0.5,
	})
	return f
}

const sampleResume = "Backend engineer with 5+ years of experience in Go, PostgreSQL and Docker. Built event pipelines and APIs."

func TestStoreResumeDedupSameTextAndEmail(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	first, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", tenant, "jane@example.com", "203.0.113.7")
	require.NoError(t, err)

	second, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", tenant, "jane@example.com", "203.0.113.8")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.resumes.rows, 1)
	assert.Equal(t, 1, f.gateway.embedCalls)
	// The later upload's address wins; the email is untouched.
	assert.Equal(t, "203.0.113.8", second.IPAddress)
	assert.Equal(t, "jane@example.com", second.Email)
}

func TestStoreResumeDedupBackfillsContact(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	first, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", tenant, "", "")
	require.NoError(t, err)

	second, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", tenant, "jane@example.com", "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.resumes.rows, 1)
	assert.Equal(t, 1, f.gateway.embedCalls)
	assert.Equal(t, "jane@example.com", second.Email)
	assert.Equal(t, "203.0.113.7", second.IPAddress)
}

func TestStoreResumeDifferentTextCreatesNewRow(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	_, err := f.uc.StoreResume(ctx, sampleResume, "a.pdf", tenant, "", "")
	require.NoError(t, err)
	_, err = f.uc.StoreResume(ctx, "Completely different resume about frontend work with React and TypeScript.", "b.pdf", tenant, "", "")
	require.NoError(t, err)

	assert.Len(t, f.resumes.rows, 2)
	assert.Equal(t, 2, f.gateway.embedCalls)
}

func TestStoreResumeTenantIsolation(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", uuid.New(), "jane@example.com", "")
	require.NoError(t, err)
	_, err = f.uc.StoreResume(ctx, sampleResume, "cv.pdf", uuid.New(), "jane@example.com", "")
	require.NoError(t, err)

	// Identical documents under different tenants never share a row.
	assert.Len(t, f.resumes.rows, 2)
	assert.Equal(t, 2, f.gateway.embedCalls)
}

func TestStoreResumeNormalizesContact(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	resume, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", uuid.New(), "undefined", "::ffff:203.0.113.9")
	require.NoError(t, err)

	assert.Equal(t, "", resume.Email)
	assert.Equal(t, "203.0.113.9", resume.IPAddress)

	resume, err = f.uc.StoreResume(ctx, "Another resume body for the normalization checks, long enough to be its own document.", "cv.pdf", uuid.New(), "null", "unknown")
	require.NoError(t, err)

	assert.Equal(t, "", resume.Email)
	assert.Equal(t, "", resume.IPAddress)
}

func TestStoreResumeRejectsEmptyText(t *testing.T) {
	f := newFixture(false)

	_, err := f.uc.StoreResume(context.Background(), "   ", "cv.pdf", uuid.New(), "", "")
	assert.Error(t, err)
}

func syncJobsPayload(ids ...string) []dto.JobRecord {
	jobs := make([]dto.JobRecord, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, dto.JobRecord{ID: id, Title: "Engineer " + id, Description: "desc"})
	}
	return jobs
}

func TestSyncJobsCreatesThenPrunes(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	result, err := f.uc.SyncJobs(ctx, syncJobsPayload("job-a", "job-b"), tenant)
	require.NoError(t, err)
	assert.Equal(t, dto.SyncResult{Total: 2, Processed: 2, Created: 2}, result)

	result, err = f.uc.SyncJobs(ctx, syncJobsPayload("job-b"), tenant)
	require.NoError(t, err)
	assert.Equal(t, dto.SyncResult{Total: 1, Processed: 1, Updated: 1, Deleted: 1}, result)

	remaining, err := f.jobs.ListByTenant(tenant)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "job-b", remaining[0].ExternalJobID)
}

func TestSyncJobsEmptyPayloadNeverPrunes(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	_, err := f.uc.SyncJobs(ctx, syncJobsPayload("job-a"), tenant)
	require.NoError(t, err)

	result, err := f.uc.SyncJobs(ctx, nil, tenant)
	require.NoError(t, err)
	assert.Equal(t, dto.SyncResult{}, result)

	// A payload of only invalid records is treated the same way.
	result, err = f.uc.SyncJobs(ctx, []dto.JobRecord{{Title: "no id"}}, tenant)
	require.NoError(t, err)
	assert.Equal(t, dto.SyncResult{Total: 1}, result)

	remaining, err := f.jobs.ListByTenant(tenant)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestSyncJobsSkipsInvalidRecords(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	jobs := []dto.JobRecord{
		{ID: "job-a", Title: "Engineer", Description: "desc"},
		{Title: "missing id"},
		{ID: "job-c"},
	}
	result, err := f.uc.SyncJobs(ctx, jobs, tenant)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Created)
}

func TestSyncJobsBatchFailureFallsBackPerItem(t *testing.T) {
	f := newFixture(false)
	f.gateway.batchErr = errors.New("provider rejected batch")
	f.gateway.embedErrs["job:job-b"] = errors.New("timeout")
	ctx := context.Background()
	tenant := uuid.New()

	result, err := f.uc.SyncJobs(ctx, syncJobsPayload("job-a", "job-b"), tenant)
	require.NoError(t, err)

	// job-a recovers through the per-item path, job-b is skipped.
	assert.Equal(t, 1, f.gateway.batchCalls)
	assert.Equal(t, 2, f.gateway.embedCalls)
	assert.Equal(t, dto.SyncResult{Total: 2, Processed: 1, Created: 1}, result)
}

func TestSyncJobsBatchCountMismatchFallsBackPerItem(t *testing.T) {
	f := newFixture(false)
	f.gateway.batchShort = true
	ctx := context.Background()
	tenant := uuid.New()

	result, err := f.uc.SyncJobs(ctx, syncJobsPayload("job-a", "job-b"), tenant)
	require.NoError(t, err)

	assert.Equal(t, 2, f.gateway.embedCalls)
	assert.Equal(t, dto.SyncResult{Total: 2, Processed: 2, Created: 2}, result)
}

func (f *fixture) seedMatching(t *testing.T, tenant uuid.UUID) *model.Resume {
	t.Helper()
	ctx := context.Background()

	f.gateway.vectors["job:job-a"] = []float32{1, 0}
	f.gateway.vectors["job:job-b"] = []float32{1, 1}
	f.gateway.vectors["job:job-c"] = []float32{0, 1}
	_, err := f.uc.SyncJobs(ctx, syncJobsPayload("job-a", "job-b", "job-c"), tenant)
	require.NoError(t, err)

	resume, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", tenant, "", "")
	require.NoError(t, err)
	return resume
}

func TestFindMatchesRanksBySimilarity(t *testing.T) {
	f := newFixture(false)
	tenant := uuid.New()
	resume := f.seedMatching(t, tenant)

	matches, err := f.uc.FindMatches(context.Background(), resume.ID, tenant, 10, 0)
	require.NoError(t, err)

	// job-c is orthogonal to the resume and falls under the 0.5 default.
	require.Len(t, matches, 2)
	assert.Equal(t, "job-a", matches[0].ExternalJobID)
	assert.InDelta(t, 1.0, matches[0].SemanticSimilarity, 1e-9)
	assert.Equal(t, matches[0].SemanticSimilarity, matches[0].CombinedScore)
	assert.Equal(t, "job-b", matches[1].ExternalJobID)
	assert.InDelta(t, 0.707, matches[1].SemanticSimilarity, 1e-9)
	assert.Equal(t, lightweightReasoning, matches[0].MatchReasoning)
	assert.Equal(t, 0, f.gateway.analyzeCalls)
}

func TestFindMatchesSecondCallIsServedFromCache(t *testing.T) {
	f := newFixture(false)
	tenant := uuid.New()
	resume := f.seedMatching(t, tenant)
	ctx := context.Background()

	first, err := f.uc.FindMatches(ctx, resume.ID, tenant, 10, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)

	embedCalls, batchCalls := f.gateway.embedCalls, f.gateway.batchCalls

	second, err := f.uc.FindMatches(ctx, resume.ID, tenant, 10, 0)
	require.NoError(t, err)

	assert.Equal(t, embedCalls, f.gateway.embedCalls)
	assert.Equal(t, batchCalls, f.gateway.batchCalls)
	assert.Equal(t, 0, f.gateway.analyzeCalls)

	require.Len(t, second, 2)
	for i := range second {
		assert.Equal(t, first[i].ExternalJobID, second[i].ExternalJobID)
		assert.Equal(t, first[i].CombinedScore, second[i].CombinedScore)
		assert.Equal(t, cachedReasoning, second[i].MatchReasoning)
	}
}

func TestFindMatchesTieBreaksByExternalJobID(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	// Both jobs embed to the resume's own vector, so similarity ties at 1.0.
	_, err := f.uc.SyncJobs(ctx, syncJobsPayload("job-z", "job-a"), tenant)
	require.NoError(t, err)
	resume, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", tenant, "", "")
	require.NoError(t, err)

	matches, err := f.uc.FindMatches(ctx, resume.ID, tenant, 10, 0)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "job-a", matches[0].ExternalJobID)
	assert.Equal(t, "job-z", matches[1].ExternalJobID)
}

func TestFindMatchesWithSkillAnalysisBlendsScores(t *testing.T) {
	f := newFixture(true)
	tenant := uuid.New()

	f.gateway.analysis = func(candidateSkills, requiredSkills []string) service.SkillAnalysis {
		score := 80.0
		if len(requiredSkills) > 0 && requiredSkills[0] == "Rust" {
			score = 100.0
		}
		return service.SkillAnalysis{
			DirectMatches: []string{"Go"},
			MatchScore:    score,
			Reasoning:     "judged",
		}
	}

	ctx := context.Background()
	f.gateway.vectors["job:job-a"] = []float32{1, 0}
	f.gateway.vectors["job:job-b"] = []float32{1, 1}
	jobs := []dto.JobRecord{
		{ID: "job-a", Title: "Backend", Description: "d", RequiredSkills: []string{"Go"}},
		{ID: "job-b", Title: "Systems", Description: "d", RequiredSkills: []string{"Rust"}},
	}
	_, err := f.uc.SyncJobs(ctx, jobs, tenant)
	require.NoError(t, err)

	resume, err := f.uc.StoreResume(ctx, sampleResume, "cv.pdf", tenant, "", "")
	require.NoError(t, err)

	matches, err := f.uc.FindMatches(ctx, resume.ID, tenant, 10, 0)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, 2, f.gateway.analyzeCalls)

	// job-a: 1.0*0.7 + 0.8*0.3 = 0.94; job-b: 0.7071*0.7 + 1.0*0.3 = 0.795.
	assert.Equal(t, "job-a", matches[0].ExternalJobID)
	assert.InDelta(t, 0.94, matches[0].CombinedScore, 1e-9)
	assert.Equal(t, 80.0, matches[0].SkillMatchScore)
	assert.Equal(t, "job-b", matches[1].ExternalJobID)
	assert.InDelta(t, 0.795, matches[1].CombinedScore, 1e-9)
	assert.Equal(t, 100.0, matches[1].SkillMatchScore)
	assert.Equal(t, "judged", matches[0].MatchReasoning)
}

func TestFindMatchesUnknownResume(t *testing.T) {
	f := newFixture(false)

	_, err := f.uc.FindMatches(context.Background(), uuid.New(), uuid.New(), 10, 0)
	assert.ErrorIs(t, err, ErrResumeNotFound)
}

func TestFindMatchesRespectsLimit(t *testing.T) {
	f := newFixture(false)
	tenant := uuid.New()
	resume := f.seedMatching(t, tenant)

	matches, err := f.uc.FindMatches(context.Background(), resume.ID, tenant, 1, 0)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "job-a", matches[0].ExternalJobID)
}

func TestGetStoredMatchesReadsCacheOnly(t *testing.T) {
	f := newFixture(false)
	tenant := uuid.New()
	resume := f.seedMatching(t, tenant)
	ctx := context.Background()

	_, err := f.uc.FindMatches(ctx, resume.ID, tenant, 10, 0)
	require.NoError(t, err)
	embedCalls := f.gateway.embedCalls

	stored, err := f.uc.GetStoredMatches(tenant, resume.ID, 0)
	require.NoError(t, err)

	require.Len(t, stored, 2)
	assert.Equal(t, "job-a", stored[0].ExternalJobID)
	assert.Equal(t, cachedReasoning, stored[0].MatchReasoning)
	assert.Equal(t, embedCalls, f.gateway.embedCalls)
}

func TestGetAnalytics(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	tenant := uuid.New()

	_, err := f.uc.StoreResume(ctx, sampleResume, "a.pdf", tenant, "jane@example.com", "203.0.113.7")
	require.NoError(t, err)
	_, err = f.uc.StoreResume(ctx, "A second, unrelated resume body used only to inflate the upload counters.", "b.pdf", tenant, "", "")
	require.NoError(t, err)

	stats, err := f.uc.GetAnalytics(tenant)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalUploads)
	assert.Equal(t, int64(1), stats.UploadsWithEmail)
	assert.Equal(t, int64(1), stats.UniqueEmails)
	assert.Equal(t, int64(1), stats.UploadsWithIP)
}

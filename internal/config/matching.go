package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// MatchingConfig holds the tunables of the matching engine. EmbeddingDim must
// match the vector column width; changing it requires re-embedding everything.
type MatchingConfig struct {
	EmbeddingModel   string
	ChatModel        string
	EmbeddingDim     int
	SyncBatchSize    int
	SyncBatchDelay   time.Duration
	SkillAnalysis    bool
	DefaultLimit     int
	DefaultThreshold float64
}

var (
	matchingConfig *MatchingConfig
	matchingOnce   sync.Once
)

func LoadMatchingConfig() *MatchingConfig {
	matchingOnce.Do(func() {
		matchingConfig = &MatchingConfig{
			EmbeddingModel:   envOr("MATCHING_EMBEDDING_MODEL", "gemini-embedding-001"),
			ChatModel:        envOr("MATCHING_CHAT_MODEL", "openai/gpt-4o-mini"),
			EmbeddingDim:     envIntOr("MATCHING_EMBEDDING_DIM", 1536),
			SyncBatchSize:    envIntOr("MATCHING_SYNC_BATCH_SIZE", 500),
			SyncBatchDelay:   time.Duration(envIntOr("MATCHING_SYNC_BATCH_DELAY_MS", 200)) * time.Millisecond,
			SkillAnalysis:    envOr("MATCHING_SKILL_ANALYSIS", "true") == "true",
			DefaultLimit:     envIntOr("MATCHING_DEFAULT_LIMIT", 10),
			DefaultThreshold: envFloatOr("MATCHING_DEFAULT_THRESHOLD", 0.5),
		}
	})
	return matchingConfig
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

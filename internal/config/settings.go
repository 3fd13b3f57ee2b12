package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Kar2410/FLOW-FIX/internal/domain/searchErrors"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const ConfigPathEnv = "FLOWFIX_CONFIG"

// ProviderConfig is the explicit Azure OpenAI connection passed to constructors.
type ProviderConfig struct {
	APIKey         string `toml:"api_key"`
	Endpoint       string `toml:"endpoint"`
	DeploymentName string `toml:"deployment_name"`
	APIVersion     string `toml:"api_version"`
}

type GoogleConfig struct {
	APIKey            string `toml:"api_key"`
	EmbeddingModel    string `toml:"embedding_model"`
	LLMModel          string `toml:"llm_model"`
	BatchPollSeconds  int    `toml:"batch_poll_seconds"`
	BatchTimeoutHours int    `toml:"batch_timeout_hours"`
}

type ServerSettings struct {
	ListenAddr         string  `toml:"listen_addr"`
	AuthToken          string  `toml:"auth_token"`
	RateLimitPerSecond float64 `toml:"rate_limit_per_second"`
	RateLimitBurst     int     `toml:"rate_limit_burst"`
}

type ChunkingSettings struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

type SearchSettings struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	TopK                int     `toml:"top_k"`
	UseNativeSearch     bool    `toml:"use_native_search"`
	CandidateMultiplier int     `toml:"candidate_multiplier"`
}

type MongoSettings struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type RedisSettings struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
}

type QdrantSettings struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	UseTLS     bool   `toml:"use_tls"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
}

type SQLiteSettings struct {
	Path string `toml:"path"`
}

type StoreSettings struct {
	Backend string         `toml:"backend"`
	Mongo   MongoSettings  `toml:"mongo"`
	Qdrant  QdrantSettings `toml:"qdrant"`
	SQLite  SQLiteSettings `toml:"sqlite"`
}

type EmbeddingSettings struct {
	Provider    string         `toml:"provider"`
	Dimensions  int            `toml:"dimensions"`
	BatchSize   int            `toml:"batch_size"`
	Concurrency int            `toml:"concurrency"`
	Azure       ProviderConfig `toml:"azure"`
	Google      GoogleConfig   `toml:"google"`
}

type LLMSettings struct {
	Provider string         `toml:"provider"`
	Azure    ProviderConfig `toml:"azure"`
	Google   GoogleConfig   `toml:"google"`
}

type Settings struct {
	Production bool              `toml:"production"`
	LogLevel   string            `toml:"log_level"`
	Server     ServerSettings    `toml:"server"`
	Redis      RedisSettings     `toml:"redis"`
	Chunking   ChunkingSettings  `toml:"chunking"`
	Search     SearchSettings    `toml:"search"`
	Store      StoreSettings     `toml:"store"`
	Embedding  EmbeddingSettings `toml:"embedding"`
	LLM        LLMSettings       `toml:"llm"`
}

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"

	ProviderAzure  = "azure"
	ProviderGoogle = "google"
)

func Default() Settings {
	google := GoogleConfig{
		EmbeddingModel:    "gemini-embedding-001",
		LLMModel:          "gemini-2.5-flash-lite-preview-09-2025",
		BatchPollSeconds:  30,
		BatchTimeoutHours: 24,
	}
	return Settings{
		LogLevel: "debug",
		Server: ServerSettings{
			ListenAddr:         ":3000",
			RateLimitPerSecond: 2,
			RateLimitBurst:     5,
		},
		Redis: RedisSettings{Addr: "127.0.0.1:6379"},
		Chunking: ChunkingSettings{
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Search: SearchSettings{
			SimilarityThreshold: 0.7,
			TopK:                3,
			CandidateMultiplier: 4,
		},
		Store: StoreSettings{
			Backend: BackendMemory,
			Mongo: MongoSettings{
				URI:        "mongodb://localhost:27017/?directConnection=true",
				Database:   "flowfix",
				Collection: "internal_knowledge_base",
			},
			Qdrant: QdrantSettings{
				Host:       "localhost",
				Port:       6334,
				Collection: "internal_knowledge_base",
			},
			SQLite: SQLiteSettings{Path: "flowfix.db"},
		},
		Embedding: EmbeddingSettings{
			Provider:    ProviderAzure,
			Dimensions:  1536,
			BatchSize:   EmbeddingBatchSize,
			Concurrency: EmbeddingConcurrency,
			Azure:       ProviderConfig{APIVersion: "2024-02-15-preview"},
			Google:      google,
		},
		LLM: LLMSettings{
			Provider: ProviderAzure,
			Azure:    ProviderConfig{APIVersion: "2024-02-15-preview"},
			Google:   google,
		},
	}
}

// Load builds Settings from defaults, an optional TOML file and the environment,
// in that order of precedence. A .env file in the working directory is honoured.
func Load(path string) (Settings, error) {
	_ = godotenv.Load()

	s := Default()
	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(raw, &s); err != nil {
			return s, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&s, os.LookupEnv); err != nil {
		return s, err
	}
	return s, s.Validate()
}

type lookupFunc func(string) (string, bool)

func applyEnv(s *Settings, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	flag("FLOWFIX_PRODUCTION", &s.Production)
	str("FLOWFIX_LOG_LEVEL", &s.LogLevel)
	str("FLOWFIX_LISTEN_ADDR", &s.Server.ListenAddr)
	str("FLOWFIX_AUTH_TOKEN", &s.Server.AuthToken)
	str("FLOWFIX_STORE_BACKEND", &s.Store.Backend)
	str("FLOWFIX_EMBEDDING_PROVIDER", &s.Embedding.Provider)
	str("FLOWFIX_LLM_PROVIDER", &s.LLM.Provider)
	num("FLOWFIX_CHUNK_SIZE", &s.Chunking.ChunkSize)
	num("FLOWFIX_CHUNK_OVERLAP", &s.Chunking.ChunkOverlap)
	num("FLOWFIX_TOP_K", &s.Search.TopK)
	if v, ok := lookup("FLOWFIX_SIMILARITY_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FLOWFIX_SIMILARITY_THRESHOLD: %w", err))
		} else {
			s.Search.SimilarityThreshold = f
		}
	}

	str("REDIS_ADDR", &s.Redis.Addr)
	str("REDIS_PASSWORD", &s.Redis.Password)
	str("MONGODB_URI", &s.Store.Mongo.URI)
	str("QDRANT_HOST", &s.Store.Qdrant.Host)
	num("QDRANT_PORT", &s.Store.Qdrant.Port)
	str("QDRANT_API_KEY", &s.Store.Qdrant.APIKey)
	str("SQLITE_PATH", &s.Store.SQLite.Path)

	for _, azure := range []*ProviderConfig{&s.Embedding.Azure, &s.LLM.Azure} {
		str("AZURE_OPENAI_API_KEY", &azure.APIKey)
		str("AZURE_OPENAI_ENDPOINT", &azure.Endpoint)
		str("AZURE_OPENAI_API_VERSION", &azure.APIVersion)
	}
	str("AZURE_OPENAI_EMBEDDING_DEPLOYMENT_NAME", &s.Embedding.Azure.DeploymentName)
	str("AZURE_OPENAI_DEPLOYMENT_NAME", &s.LLM.Azure.DeploymentName)

	str("GOOGLE_API_KEY", &s.Embedding.Google.APIKey)
	str("GOOGLE_API_KEY", &s.LLM.Google.APIKey)

	return errors.Join(errs...)
}

// Validate rejects settings the search engine cannot run with.
func (s Settings) Validate() error {
	var errs []error
	if s.Chunking.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", s.Chunking.ChunkSize))
	}
	if s.Chunking.ChunkOverlap < 0 || s.Chunking.ChunkOverlap >= s.Chunking.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", s.Chunking.ChunkOverlap))
	}
	if math.IsNaN(s.Search.SimilarityThreshold) {
		errs = append(errs, errors.New("similarity_threshold must be a number"))
	}
	if s.Search.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", s.Search.TopK))
	}
	if s.Embedding.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("embedding dimensions must not be negative, got %d", s.Embedding.Dimensions))
	}
	switch strings.ToLower(s.Store.Backend) {
	case BackendMemory, BackendMongo, BackendRedis, BackendSQLite, BackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", s.Store.Backend))
	}
	for name, provider := range map[string]string{"embedding": s.Embedding.Provider, "llm": s.LLM.Provider} {
		switch strings.ToLower(provider) {
		case ProviderAzure, ProviderGoogle:
		default:
			errs = append(errs, fmt.Errorf("unknown %s provider %q", name, provider))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return searchErrors.Wrap(searchErrors.ErrInvalidParameter, "config", err)
	}
	return nil
}

package config

import "time"

// DefaultKeywords is the oncology keyword set used when domain.keywords is empty.
var DefaultKeywords = []string{
	"cancer", "oncology", "oncologic", "tumor", "tumour", "carcinoma",
	"chemotherapy", "radiotherapy", "radiation therapy", "metastasis", "metastatic",
	"malignant", "malignancy", "lymphoma", "leukemia", "leukaemia", "melanoma",
	"sarcoma", "neoplasm", "biopsy", "radiomics", "immunotherapy", "glioma",
	"glioblastoma", "myeloma", "mammography", "carcinogen",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/oncovec/data/db/documents.db"
	}
	if cfg.Storage.MongoDatabase == "" {
		cfg.Storage.MongoDatabase = "documentDB"
	}
	if cfg.Storage.IndexType == "" {
		cfg.Storage.IndexType = IndexFlat
	}
	if cfg.Storage.IndexBlob == "" {
		cfg.Storage.IndexBlob = "vectors.ovix"
	}
	if cfg.Storage.Blob.Backend == "" {
		cfg.Storage.Blob.Backend = BlobLocal
	}
	if cfg.Storage.Blob.Backend == BlobLocal && cfg.Storage.Blob.Dir == "" {
		cfg.Storage.Blob.Dir = "/usr/local/var/oncovec/data/indices"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOllama
	}
	if cfg.Embedding.URL == "" {
		cfg.Embedding.URL = "http://localhost:11434/api/embeddings"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case ProviderOpenAI:
			cfg.Embedding.Model = "text-embedding-3-large"
		case ProviderGemini:
			cfg.Embedding.Model = "gemini-embedding-001"
		default:
			cfg.Embedding.Model = "llama3.2"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 3072
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 3
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.APIKeyEnv == "" {
		if cfg.Embedding.Provider == ProviderGemini {
			cfg.Embedding.APIKeyEnv = "GEMINI_API_KEY"
		} else {
			cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if len(cfg.Domain.Keywords) == 0 {
		cfg.Domain.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if cfg.Query.DefaultTopK == 0 {
		cfg.Query.DefaultTopK = 3
	}
	if cfg.Query.MaxTopK == 0 {
		cfg.Query.MaxTopK = 50
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".odt", ".rtf", ".xlsx"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

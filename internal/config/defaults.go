package config

// Stop word list selectors.
const (
	StopWordsEnglish = "english"
	StopWordsNone    = "none"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Corpus.Directories == nil {
		cfg.Corpus.Directories = []string{"./corpus"}
	}
	if cfg.Corpus.Extensions == nil {
		cfg.Corpus.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".odt", ".rtf", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if cfg.Corpus.Recursive == nil {
		t := true
		cfg.Corpus.Recursive = &t
	}
	if cfg.BOW.StopWords == "" {
		cfg.BOW.StopWords = StopWordsEnglish
	}
	if cfg.BOW.MinDF == 0 {
		cfg.BOW.MinDF = 1
	}
	if cfg.Topics.NumTopics == 0 {
		cfg.Topics.NumTopics = 4
	}
	if cfg.Topics.Passes == 0 {
		cfg.Topics.Passes = 10
	}
	if cfg.Topics.Seed == 0 {
		cfg.Topics.Seed = 42
	}
	if cfg.Topics.TopTerms == 0 {
		cfg.Topics.TopTerms = 10
	}
	if cfg.Topics.Workers == 0 {
		cfg.Topics.Workers = 1
	}
	if cfg.Embedding.Source == "" {
		cfg.Embedding.Source = SourceTrain
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 100
	}
	if cfg.Embedding.Window == 0 {
		cfg.Embedding.Window = 5
	}
	if cfg.Embedding.MinCount == 0 {
		cfg.Embedding.MinCount = 2
	}
	if cfg.Embedding.Epochs == 0 {
		cfg.Embedding.Epochs = 5
	}
	if cfg.Embedding.Negative == 0 {
		cfg.Embedding.Negative = 5
	}
	if cfg.Embedding.LearningRate == 0 {
		cfg.Embedding.LearningRate = 0.025
	}
	if cfg.Embedding.Seed == 0 {
		cfg.Embedding.Seed = 42
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 16
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Similarity.Workers == 0 {
		cfg.Similarity.Workers = 4
	}
	if cfg.Cluster.K == 0 {
		cfg.Cluster.K = 4
	}
	if cfg.Cluster.Seed == 0 {
		cfg.Cluster.Seed = 42
	}
	if cfg.Cluster.MaxIterations == 0 {
		cfg.Cluster.MaxIterations = 300
	}
	if cfg.Cluster.Tolerance == 0 {
		cfg.Cluster.Tolerance = 1e-4
	}
	if cfg.Cluster.Restarts == 0 {
		cfg.Cluster.Restarts = 10
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/doctopics.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "./data/index"
	}
	if cfg.Storage.VocabularyPath == "" {
		cfg.Storage.VocabularyPath = "./data/vocabulary.bin"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 2000
	}
}

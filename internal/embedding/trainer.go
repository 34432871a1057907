package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

const (
	unigramTableSize = 1_000_000
	unigramPower     = 0.75
	maxExp           = 6.0
)

// TrainerConfig holds skip-gram hyperparameters.
type TrainerConfig struct {
	Dimension    int
	Window       int
	MinCount     int
	Epochs       int
	Negative     int
	LearningRate float64
	Seed         int64
}

// DefaultTrainerConfig mirrors the usual word2vec defaults with 100 dimensions.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Dimension:    100,
		Window:       5,
		MinCount:     2,
		Epochs:       5,
		Negative:     5,
		LearningRate: 0.025,
		Seed:         42,
	}
}

// Trainer learns word vectors with skip-gram and negative sampling.
// Training runs on a single goroutine so a fixed seed reproduces the vocabulary exactly.
type Trainer struct {
	cfg    TrainerConfig
	logger *zap.Logger
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithTrainerLogger sets the logger for epoch progress.
func WithTrainerLogger(l *zap.Logger) TrainerOption {
	return func(t *Trainer) {
		t.logger = l
	}
}

// NewTrainer creates a trainer. Zero fields in cfg take their defaults.
func NewTrainer(cfg TrainerConfig, opts ...TrainerOption) *Trainer {
	def := DefaultTrainerConfig()
	if cfg.Dimension <= 0 {
		cfg.Dimension = def.Dimension
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinCount <= 0 {
		cfg.MinCount = def.MinCount
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = def.Epochs
	}
	if cfg.Negative <= 0 {
		cfg.Negative = def.Negative
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}
	t := &Trainer{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	return t
}

// Config returns the effective hyperparameters.
func (t *Trainer) Config() TrainerConfig {
	return t.cfg
}

// Train builds a vocabulary from docs. Tokens seen fewer than MinCount times are
// excluded. Returns ErrEmptyCorpus when nothing survives the filter.
func (t *Trainer) Train(ctx context.Context, docs [][]string) (*Vocabulary, error) {
	counts := CountTokens(docs, t.cfg.MinCount)
	if len(counts) == 0 {
		return nil, ErrEmptyCorpus
	}
	dim := t.cfg.Dimension
	index := make(map[string]int, len(counts))
	for i, tc := range counts {
		index[tc.Token] = i
	}

	sentences := make([][]int, 0, len(docs))
	var totalWords int
	for _, doc := range docs {
		sent := make([]int, 0, len(doc))
		for _, tok := range doc {
			if i, ok := index[tok]; ok {
				sent = append(sent, i)
			}
		}
		if len(sent) > 0 {
			sentences = append(sentences, sent)
			totalWords += len(sent)
		}
	}

	rng := rand.New(rand.NewSource(uint64(t.cfg.Seed)))
	syn0 := make([][]float64, len(counts))
	syn1 := make([][]float64, len(counts))
	for i := range syn0 {
		syn0[i] = make([]float64, dim)
		for d := range syn0[i] {
			syn0[i][d] = (rng.Float64() - 0.5) / float64(dim)
		}
		syn1[i] = make([]float64, dim)
	}
	table := unigramTable(counts)
	neu1e := make([]float64, dim)

	start := time.Now()
	total := float64(t.cfg.Epochs*totalWords) + 1
	var processed int
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		for _, sent := range sentences {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for pos, word := range sent {
				alpha := t.cfg.LearningRate * (1 - float64(processed)/total)
				if alpha < t.cfg.LearningRate*1e-4 {
					alpha = t.cfg.LearningRate * 1e-4
				}
				processed++
				b := rng.Intn(t.cfg.Window)
				for c := pos - t.cfg.Window + b; c <= pos+t.cfg.Window-b; c++ {
					if c < 0 || c >= len(sent) || c == pos {
						continue
					}
					l1 := syn0[sent[c]]
					for d := range neu1e {
						neu1e[d] = 0
					}
					for n := 0; n <= t.cfg.Negative; n++ {
						target, label := word, 1.0
						if n > 0 {
							target = table[rng.Intn(len(table))]
							if target == word {
								continue
							}
							label = 0
						}
						g := (label - sigmoid(floats.Dot(l1, syn1[target]))) * alpha
						floats.AddScaled(neu1e, g, syn1[target])
						floats.AddScaled(syn1[target], g, l1)
					}
					floats.Add(l1, neu1e)
				}
			}
		}
		t.logger.Debug("embedding epoch done",
			zap.Int("epoch", epoch+1),
			zap.Int("epochs", t.cfg.Epochs),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	tokens := make([]string, len(counts))
	freq := make([]int, len(counts))
	for i, tc := range counts {
		tokens[i] = tc.Token
		freq[i] = tc.Count
	}
	vocab, err := newVocabulary(tokens, freq, syn0)
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}
	t.logger.Info("embedding trained",
		zap.Int("tokens", vocab.Len()),
		zap.Int("dimension", dim),
		zap.Int("corpus_words", totalWords),
		zap.Duration("elapsed", time.Since(start)),
	)
	return vocab, nil
}

// unigramTable fills a sampling table where each token appears in proportion
// to count^0.75.
func unigramTable(counts []TokenCount) []int {
	size := unigramTableSize
	if n := len(counts) * 100; n < size {
		size = n
	}
	var norm float64
	for _, tc := range counts {
		norm += math.Pow(float64(tc.Count), unigramPower)
	}
	table := make([]int, size)
	i := 0
	cum := math.Pow(float64(counts[0].Count), unigramPower) / norm
	for a := range table {
		table[a] = i
		if float64(a+1)/float64(size) > cum && i < len(counts)-1 {
			i++
			cum += math.Pow(float64(counts[i].Count), unigramPower) / norm
		}
	}
	return table
}

func sigmoid(x float64) float64 {
	if x > maxExp {
		return 1
	}
	if x < -maxExp {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

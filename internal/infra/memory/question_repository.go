package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"narrated-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches the question pool of a selection from a backing store.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, sel domain.Selection) ([]domain.Question, error)
}

// QuestionRepository caches question pools with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

func (r *QuestionRepository) Questions(ctx context.Context, sel domain.Selection) ([]domain.Question, error) {
	key := sel.Key()
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.questions, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.questions, nil
		}
		r.mu.RUnlock()

		questions, err := r.loader.LoadQuestions(ctx, sel)
		if err != nil {
			return nil, err
		}

		ttl := r.ttlWithJitter()
		r.mu.Lock()
		r.cache[key] = cachedPool{
			questions: questions,
			expiresAt: now.Add(ttl),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader is a loader backed by an in-memory slice (useful for tests/demos).
type StaticQuestionLoader struct {
	pools map[string][]domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	pools := make(map[string][]domain.Question)
	for _, q := range questions {
		key := q.Selection.Key()
		pools[key] = append(pools[key], q)
	}
	for _, pool := range pools {
		sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	}
	return &StaticQuestionLoader{pools: pools}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, sel domain.Selection) ([]domain.Question, error) {
	return l.pools[sel.Key()], nil
}

// SampleQuestions is a small built-in pool used when no database is configured.
func SampleQuestions() []domain.Question {
	sel := domain.Selection{Grade: "5", Subject: "math", Term: "1"}
	return []domain.Question{
		{
			ID:            "math-5-1-001",
			Selection:     sel,
			Prompt:        "What is 7 x 8?",
			Options:       []string{"54", "56", "58", "64"},
			CorrectAnswer: "56",
			Explanation:   "Seven eights are fifty-six.",
		},
		{
			ID:            "math-5-1-002",
			Selection:     sel,
			Context:       "A baker puts 12 rolls in each tray.",
			Prompt:        "How many rolls fit on 4 trays?",
			Options:       []string{"36", "44", "48", "52"},
			CorrectAnswer: "48",
			Explanation:   "12 times 4 is 48.",
		},
		{
			ID:            "math-5-1-003",
			Selection:     sel,
			Prompt:        "Which fraction is equal to 1/2?",
			Options:       []string{"2/3", "3/6", "3/4", "4/6"},
			CorrectAnswer: "3/6",
			Explanation:   "Three sixths simplify to one half.",
		},
		{
			ID:            "math-5-1-004",
			Selection:     sel,
			Prompt:        "What is the value of the digit 4 in 3,482?",
			Options:       []string{"4", "40", "400", "4,000"},
			CorrectAnswer: "400",
			Explanation:   "The 4 is in the hundreds place.",
		},
		{
			ID:            "math-5-1-005",
			Selection:     sel,
			Prompt:        "Round 6.7 to the nearest whole number.",
			Options:       []string{"6", "6.5", "7", "8"},
			CorrectAnswer: "7",
			Explanation:   "Seven tenths is more than one half, so round up.",
		},
	}
}

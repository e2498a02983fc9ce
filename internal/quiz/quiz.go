// Package quiz serves and grades the Bible quiz.
package quiz

import (
	_ "embed"
	"errors"
	"fmt"

	"faithfulcity/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultBank []byte

// TimedOut is the answer recorded when the per-question timer ran out.
const TimedOut = -1

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is one multiple choice question. Correct indexes Options.
type Question struct {
	ID         int        `yaml:"id" json:"id"`
	Question   string     `yaml:"question" json:"question"`
	Options    []string   `yaml:"options" json:"options"`
	Correct    int        `yaml:"correct" json:"-"`
	Verse      string     `yaml:"verse" json:"verse,omitempty"`
	Difficulty Difficulty `yaml:"difficulty" json:"difficulty"`
}

// Bank is an ordered question set.
type Bank struct {
	TimeLimitSeconds int        `yaml:"time_limit_seconds" json:"time_limit_seconds"`
	Questions        []Question `yaml:"questions" json:"questions"`
}

// AnswerResult reports one graded answer.
type AnswerResult struct {
	QuestionID int    `json:"question_id"`
	Selected   int    `json:"selected"`
	Correct    int    `json:"correct"`
	IsCorrect  bool   `json:"is_correct"`
	TimedOut   bool   `json:"timed_out"`
	Verse      string `json:"verse,omitempty"`
}

// Result is the outcome of a completed quiz.
type Result struct {
	Score      int            `json:"score"`
	Total      int            `json:"total"`
	Percentage float64        `json:"percentage"`
	Message    string         `json:"message"`
	Answers    []AnswerResult `json:"answers"`
}

// Default returns the embedded question bank.
func Default() (*Bank, error) {
	return Parse(defaultBank)
}

// Parse decodes and validates a YAML question bank.
func Parse(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode quiz bank: %w", err)
	}
	if len(b.Questions) == 0 {
		return nil, errors.New("quiz bank has no questions")
	}
	if b.TimeLimitSeconds <= 0 {
		b.TimeLimitSeconds = 30
	}
	for i, q := range b.Questions {
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("question %d needs at least two options", q.ID)
		}
		if q.Correct < 0 || q.Correct >= len(q.Options) {
			return nil, fmt.Errorf("question %d has answer index %d out of range", q.ID, q.Correct)
		}
		if q.Difficulty == "" {
			b.Questions[i].Difficulty = DifficultyEasy
		}
	}
	return &b, nil
}

// Public returns the bank without the answer key. Correct is never serialized,
// so the copy only guards against callers reading it directly.
func (b *Bank) Public() Bank {
	out := Bank{TimeLimitSeconds: b.TimeLimitSeconds, Questions: make([]Question, len(b.Questions))}
	for i, q := range b.Questions {
		q.Options = append([]string(nil), q.Options...)
		q.Correct = 0
		out.Questions[i] = q
	}
	return out
}

// Grade scores one answer per question, in question order. TimedOut marks an
// unanswered question.
func (b *Bank) Grade(answers []int) (*Result, error) {
	if len(answers) != len(b.Questions) {
		return nil, models.NewValidationError(
			fmt.Sprintf("expected %d answers, got %d", len(b.Questions), len(answers)))
	}

	res := &Result{Total: len(b.Questions), Answers: make([]AnswerResult, 0, len(answers))}
	for i, q := range b.Questions {
		a := answers[i]
		if a != TimedOut && (a < 0 || a >= len(q.Options)) {
			return nil, models.NewValidationError(
				fmt.Sprintf("answer %d for question %d is out of range", a, q.ID))
		}
		ar := AnswerResult{
			QuestionID: q.ID,
			Selected:   a,
			Correct:    q.Correct,
			IsCorrect:  a == q.Correct,
			TimedOut:   a == TimedOut,
			Verse:      q.Verse,
		}
		if ar.IsCorrect {
			res.Score++
		}
		res.Answers = append(res.Answers, ar)
	}
	res.Percentage = float64(res.Score) / float64(res.Total) * 100
	res.Message = ScoreMessage(res.Percentage)
	return res, nil
}

// ScoreMessage picks the encouragement shown for a percentage score.
func ScoreMessage(percentage float64) string {
	switch {
	case percentage >= 90:
		return "Excellent! You're a Bible scholar! 🌟"
	case percentage >= 70:
		return "Great job! Keep studying God's word! 📖"
	case percentage >= 50:
		return "Good effort! Continue growing in faith! 🌱"
	default:
		return "Keep reading and learning! God's word is a lamp to your feet! 💡"
	}
}

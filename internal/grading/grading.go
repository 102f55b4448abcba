// Package grading scores a submitted attempt. It is a pure function of the
// attempt's answers and the questions' configured options and points; no
// store, clock, or network access.
package grading

import (
	"strconv"
	"strings"

	"github.com/examhub/examhub/internal/model"
)

// Result is the outcome of grading one attempt. Answers carries the input
// answers with IsCorrect and PointsEarned filled in.
type Result struct {
	Answers     []model.Answer
	Score       float64
	TotalPoints float64
	Percentage  float64
	Passed      bool
}

// Grade scores the answers against their questions. Every answered question
// contributes its point value to the denominator regardless of correctness.
// Essay answers receive no automatic correctness and earn nothing here.
// Percentage is 0 when no points are at stake, so it always lies in [0,100].
// Grading is deterministic: regrading unchanged answers gives equal results.
func Grade(answers []model.Answer, questions []model.Question, passingScore float64) Result {
	byID := make(map[int64]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	res := Result{Answers: make([]model.Answer, len(answers))}
	copy(res.Answers, answers)

	for i := range res.Answers {
		a := &res.Answers[i]
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		res.TotalPoints += q.Points

		switch q.Type {
		case model.TypeMultipleChoice:
			correct := selectedOptionIsCorrect(q, a.SelectedOptionID)
			a.IsCorrect = &correct
			if correct {
				a.PointsEarned = q.Points
				res.Score += q.Points
			} else {
				a.PointsEarned = 0
			}

		case model.TypeTrueFalse:
			correct := trueFalseMatches(q, a.AnswerText)
			a.IsCorrect = &correct
			if correct {
				a.PointsEarned = q.Points
				res.Score += q.Points
			} else {
				a.PointsEarned = 0
			}

		case model.TypeEssay:
			// Left ungraded; AI feedback, if any, does not alter the score.
		}
	}

	if res.TotalPoints > 0 {
		res.Percentage = res.Score / res.TotalPoints * 100
	}
	res.Passed = res.Percentage >= passingScore
	return res
}

func selectedOptionIsCorrect(q model.Question, selectedID *int64) bool {
	if selectedID == nil {
		return false
	}
	for _, o := range q.Options {
		if o.ID == *selectedID {
			return o.IsCorrect
		}
	}
	return false
}

// trueFalseMatches compares the answer text against the boolean encoded by
// the question's first option (lowest order index). A true/false question
// without options grades incorrect: the correct boolean is unknowable.
func trueFalseMatches(q model.Question, answerText string) bool {
	if len(q.Options) == 0 {
		return false
	}
	want := strconv.FormatBool(q.Options[0].IsCorrect)
	return strings.EqualFold(strings.TrimSpace(answerText), want)
}

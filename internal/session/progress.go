package session

import "narrated-quiz-service/internal/domain"

// Progress counts presented questions against the session target.
type Progress struct {
	target    int
	presented int
	correct   int
	lastToken uint64
}

// Reset starts counting toward a new target.
func (p *Progress) Reset(target int) {
	*p = Progress{target: target}
}

// MarkPresented counts token once. It never counts past the target.
func (p *Progress) MarkPresented(token uint64) bool {
	if token == 0 || token == p.lastToken || p.presented >= p.target {
		return false
	}
	p.lastToken = token
	p.presented++
	return true
}

// RecordCorrect counts a correct manual answer.
func (p *Progress) RecordCorrect() {
	p.correct++
}

// Done reports whether the target has been reached.
func (p *Progress) Done() bool {
	return p.presented >= p.target
}

func (p *Progress) Presented() int { return p.presented }
func (p *Progress) Target() int { return p.target }

// Summary is the terminal report.
func (p *Progress) Summary(aborted bool) domain.Summary {
	return domain.Summary{
		Presented: p.presented,
		Target:    p.target,
		Correct:   p.correct,
		Aborted:   aborted,
	}
}

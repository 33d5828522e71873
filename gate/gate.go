// Package gate implements the confirmation checkpoints between destructive
// steps. A gate presents one fact (the plan, or what the next stage is
// about to do) and blocks until the operator accepts or aborts. Declining
// is fail-closed: the whole run stops, nothing already done is undone.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
)

// Gate is a synchronous confirmation checkpoint.
type Gate interface {
	// Confirm blocks until the operator answers. false means abort.
	Confirm(ctx context.Context, title, detail string) (bool, error)
}

// Terminal asks on the controlling terminal. A zero Timeout waits forever;
// a timeout expiry counts as a decline.
type Terminal struct {
	Timeout time.Duration
}

var _ Gate = Terminal{}

func (t Terminal) Confirm(ctx context.Context, title, detail string) (bool, error) {
	var accepted bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(detail).
			Affirmative("Proceed").
			Negative("Abort").
			Value(&accepted),
	))
	if t.Timeout > 0 {
		form = form.WithTimeout(t.Timeout)
	}
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, huh.ErrTimeout) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return accepted, nil
}

// Scripted answers from a fixed queue, for automation and tests. Once the
// queue is exhausted every further gate is declined.
type Scripted struct {
	answers []bool
	Asked   []string // titles presented, in order
}

var _ Gate = (*Scripted)(nil)

// NewScripted returns a gate that will give the supplied answers in order.
func NewScripted(answers ...bool) *Scripted {
	return &Scripted{answers: answers}
}

func (s *Scripted) Confirm(_ context.Context, title, _ string) (bool, error) {
	s.Asked = append(s.Asked, title)
	if len(s.answers) == 0 {
		return false, nil
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

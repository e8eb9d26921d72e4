package navigation

import (
	"sync"
	"time"

	"github.com/nexusflow/nexusflow-client/internal/ports/out/clock"
)

type SplashStage int

const (
	SplashHidden SplashStage = iota
	SplashLogo
	SplashText
	SplashFadeOut
	SplashDone
)

// Offsets from splash start.
const (
	SplashLogoAt     = 500 * time.Millisecond
	SplashTextAt     = 1200 * time.Millisecond
	SplashFadeOutAt  = 2800 * time.Millisecond
	SplashCompleteAt = 3400 * time.Millisecond
)

// Splash drives the intro animation stages on the clock. Stop cancels any
// stage not yet reached.
type Splash struct {
	mu     sync.Mutex
	stage  SplashStage
	timers []clock.Timer
}

// StartSplash schedules every stage. onStage receives each stage as it is
// reached, ending with SplashDone.
func StartSplash(clk clock.Clock, onStage func(SplashStage)) *Splash {
	s := &Splash{}
	steps := []struct {
		at    time.Duration
		stage SplashStage
	}{
		{SplashLogoAt, SplashLogo},
		{SplashTextAt, SplashText},
		{SplashFadeOutAt, SplashFadeOut},
		{SplashCompleteAt, SplashDone},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range steps {
		stage := st.stage
		s.timers = append(s.timers, clk.AfterFunc(st.at, func() { s.advance(stage, onStage) }))
	}
	return s
}

func (s *Splash) advance(stage SplashStage, onStage func(SplashStage)) {
	s.mu.Lock()
	if stage <= s.stage {
		s.mu.Unlock()
		return
	}
	s.stage = stage
	s.mu.Unlock()
	if onStage != nil {
		onStage(stage)
	}
}

func (s *Splash) Stage() SplashStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Stop cancels outstanding stages. It is safe to call more than once.
func (s *Splash) Stop() {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

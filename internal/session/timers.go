package session

import (
	"time"

	"github.com/DoyleJ11/impostor-client/internal/engine"
	"go.uber.org/zap"
)

// timerHandle is one armed phase timer. gen guards against a fire that
// raced with Stop and was already queued.
type timerHandle struct {
	gen uint64
	t   *time.Timer
}

func (s *Session) delay(t engine.Timer) time.Duration {
	switch t {
	case engine.TimerRoleReveal:
		return s.cfg.RoleRevealDelay
	case engine.TimerResumeSettle:
		return s.cfg.ResumeSettleDelay
	}
	return 0
}

func (s *Session) armTimer(t engine.Timer) {
	if h, ok := s.timers[t]; ok {
		h.t.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.timers[t] = &timerHandle{
		gen: gen,
		t:   time.AfterFunc(s.delay(t), func() { s.post(timerFired{timer: t, gen: gen}) }),
	}
}

func (s *Session) cancelTimers() {
	for name, h := range s.timers {
		h.t.Stop()
		delete(s.timers, name)
	}
}

func (s *Session) fireTimer(msg timerFired) {
	h, ok := s.timers[msg.timer]
	if !ok || h.gen != msg.gen {
		s.log.Debug("dropping stale timer", zap.String("timer", string(msg.timer)))
		return
	}
	delete(s.timers, msg.timer)
	s.apply(engine.TimerFired{Timer: msg.timer})
}

// setNotice replaces the visible notice. Only the latest one can expire.
func (s *Session) setNotice(message string, long bool) {
	ttl := s.cfg.ShortNotice
	if long {
		ttl = s.cfg.LongNotice
	}
	if s.noticeT != nil {
		s.noticeT.Stop()
	}
	s.noticeG++
	gen := s.noticeG
	s.notice = &Notice{Message: message, ExpiresAt: time.Now().Add(ttl)}
	s.noticeT = time.AfterFunc(ttl, func() { s.post(noticeExpired{gen: gen}) })
	s.version++
}

func (s *Session) clearNotice() {
	if s.noticeT != nil {
		s.noticeT.Stop()
	}
	s.noticeG++
	s.notice = nil
	s.version++
}

// post delivers a message from a timer goroutine without outliving the
// session.
func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

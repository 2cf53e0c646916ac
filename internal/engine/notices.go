package engine

import (
	"time"

	"github.com/leapstack-labs/leapcurate/internal/refresh"
	"github.com/leapstack-labs/leapcurate/pkg/core"
)

// Notify records a user-visible notice and signals subscribers. Only the
// most recent notices are kept.
func (e *Engine) Notify(n core.Notice) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	switch n.Level {
	case core.NoticeError:
		e.logger.Error(n.Message, "source", n.Source)
	case core.NoticeWarn:
		e.logger.Warn(n.Message, "source", n.Source)
	default:
		e.logger.Info(n.Message, "source", n.Source)
	}

	e.mu.Lock()
	e.notices = append(e.notices, n)
	if len(e.notices) > maxNotices {
		e.notices = e.notices[len(e.notices)-maxNotices:]
	}
	e.mu.Unlock()

	e.bus.Publish(refresh.TopicNoticePosted, n.Source)
}

// Notices returns the retained notices, oldest first.
func (e *Engine) Notices() []core.Notice {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]core.Notice(nil), e.notices...)
}

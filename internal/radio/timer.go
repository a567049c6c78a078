package radio

import "time"

// reArmTimer is a single-shot timer that can be canceled and re-armed
// repeatedly without allocation churn, per the Design Notes' timer
// requirement. The zero value is not usable; construct with
// newReArmTimer.
type reArmTimer struct {
	t      *time.Timer
	active bool
}

func newReArmTimer() *reArmTimer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return &reArmTimer{t: t}
}

// arm (re-)starts the timer to fire after d, draining any pending
// expiration first so a stale fire can't leak through.
func (r *reArmTimer) arm(d time.Duration) {
	r.drain()
	r.t.Reset(d)
	r.active = true
}

// cancel stops the timer if armed; it is a no-op otherwise.
func (r *reArmTimer) cancel() {
	r.drain()
	r.active = false
}

func (r *reArmTimer) drain() {
	if !r.t.Stop() {
		select {
		case <-r.t.C:
		default:
		}
	}
}

// fired marks the timer as no longer active once its channel has been
// observed to fire. cancel() and arm() drain the channel without
// blocking, so they are safe whether or not it already delivered.
func (r *reArmTimer) fired() {
	r.active = false
}

func (r *reArmTimer) C() <-chan time.Time {
	return r.t.C
}

package radio

import "github.com/mlohse/fanetgs/internal/fanet/message"

// handleMessage applies a single inbound message to the state
// machine, per the bring-up sequence in §4.3. It runs only on the
// loop goroutine.
func (r *Radio) handleMessage(m message.Message) {
	switch m.Kind {
	case message.KindPktReceived:
		if r.onPacket != nil {
			r.onPacket(m.Event)
		}
		return
	case message.KindFanetReply:
		r.handleFanetReply(m.Reply)
	case message.KindVersionReply:
		r.handleVersionReply(m.Firmware)
	case message.KindRegionReply:
		r.handleRegionReply(m.Reply)
	}
}

// handleFanetReply processes an FNR reply. During Initializing, only
// the initial "MSG,1" banner advances the sequence; any other reply
// is logged and the wait continues until the init timer fires. In
// Ready, an Error reply degrades the state — this is the one case the
// asymmetric Enable-reply handling (see handleRegionReply and §9) must
// still honor even though Ready was entered without waiting for a
// reply. Any reply in Ready stops the com timer armed by the Enable
// command, so only silence leads to ComTimeout.
func (r *Radio) handleFanetReply(reply message.GenericReply) {
	switch r.state {
	case Initializing:
		if reply.Kind == message.ReplyMsg && reply.Code == 1 {
			r.sendAndArm(message.NewVersionCommand())
			return
		}
		r.logger.Warnw("radio: unexpected reply while waiting for init banner", "reply", reply)
	case Ready:
		r.timer.cancel()
		if reply.Kind == message.ReplyError {
			r.logger.Errorw("radio: fanet error reply in Ready", "code", reply.Code, "text", reply.Text)
			r.setState(Error)
		}
		// Any other reply in Ready (including the Enable command's own
		// reply) is informational only; Ready was already entered.
	}
}

// handleVersionReply checks the firmware id against the expected
// build and, on match, proceeds to the region/power command.
func (r *Radio) handleVersionReply(firmware string) {
	if r.state != Initializing {
		return
	}
	if firmware != expectedFw {
		r.logger.Errorw("radio: unexpected firmware", "got", firmware, "want", expectedFw)
		r.timer.cancel()
		r.setState(WrongFw)
		return
	}
	r.sendAndArm(message.NewRegionCommand(r.cfg.TxPowerDBm, r.cfg.Frequency))
}

// handleRegionReply proceeds to enabling the radio on Ok, or degrades
// to Error on any other reply.
func (r *Radio) handleRegionReply(reply message.GenericReply) {
	if r.state != Initializing {
		return
	}
	if reply.Kind != message.ReplyOk {
		r.logger.Errorw("radio: region command rejected", "reply", reply)
		r.timer.cancel()
		r.setState(Error)
		return
	}
	r.sendAndArm(message.NewEnableCommand(true))
	// The reference implementation accepts the Enable command's
	// eventual reply as merely informational: Ready is entered here,
	// immediately after the command is written, not after its reply.
	r.setState(Ready)
}

func (r *Radio) sendAndArm(cmd message.Message) {
	if err := r.writeCommand(cmd); err != nil {
		r.logger.Errorw("radio: command write failed", "error", err)
		r.timer.cancel()
		r.setState(Error)
		return
	}
	r.timer.arm(comTimeout)
}

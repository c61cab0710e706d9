package coherence

import "github.com/sarchlab/mesil1/sim/id"

func (c *Controller) now() uint64 {
	return c.timeTeller.Now()
}

// baseTime is the earliest time an operation on the line can start. Accesses
// to the same line serialize behind its ready time.
func (c *Controller) baseTime(readyTime uint64) uint64 {
	now := c.now()
	if readyTime > now {
		return readyTime
	}

	return now
}

func (c *Controller) sendDown(msg *Msg, deliveryTime uint64) {
	c.down.Enqueue(msg, deliveryTime, msg.TrafficBytes(c.packetHeaderBytes))
	c.observer.RecordEventSent(msg.Cmd, Downstream)
	c.hookSend(msg, Downstream, deliveryTime)
}

func (c *Controller) sendUp(msg *Msg, deliveryTime uint64) {
	c.up.Enqueue(msg, deliveryTime, msg.TrafficBytes(c.packetHeaderBytes))
	c.observer.RecordEventSent(msg.Cmd, Upstream)
	c.hookSend(msg, Upstream, deliveryTime)
}

// forwardRequest sends a miss or upgrade to the level below and returns its
// delivery time. The forwarded copy asks for the whole block.
func (c *Controller) forwardRequest(
	req *Msg,
	line *Line,
	readyTime uint64,
) uint64 {
	fwd := req.Clone()
	fwd.Src = c.name
	fwd.Dst = c.lowModule
	fwd.Addr = line.BaseAddr
	fwd.BaseAddr = line.BaseAddr
	fwd.Size = uint64(c.blockSize)
	fwd.Payload = nil

	deliveryTime := c.baseTime(readyTime) + c.tagLatency
	if req.IsNoncacheable() {
		deliveryTime = c.now() + c.mshrLatency
	}

	c.sendDown(fwd, deliveryTime)

	return deliveryTime
}

// sendResponseUp answers a core request from the line's data and returns the
// delivery time. Reads get the requested bytes; writes get the outcome.
func (c *Controller) sendResponseUp(
	req *Msg,
	line *Line,
	replay bool,
	success bool,
) uint64 {
	rsp := req.MakeResponse()
	rsp.Src = c.name
	rsp.Dst = req.Src
	rsp.GrantedState = line.State

	switch {
	case req.IsNoncacheable():
		rsp.Payload = line.cloneData()
	case req.Cmd == CmdReadExclusive:
		rsp.Success = success
		rsp.Size = req.Size
	default:
		rsp.Payload = wordOf(line.Data, req.Offset(), req.Size)
	}

	latency := c.accessLatency
	if replay {
		latency = c.mshrLatency
	}

	deliveryTime := c.baseTime(line.ReadyTime) + latency
	c.sendUp(rsp, deliveryTime)

	return deliveryTime
}

func wordOf(data []byte, offset, size uint64) []byte {
	if offset > uint64(len(data)) {
		offset = uint64(len(data))
	}

	end := offset + size
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}

	return append([]byte(nil), data[offset:end]...)
}

// sendResponseDown answers a fetch-class snoop with the line's data. It must
// be called before the state changes so that dirtiness is reported.
func (c *Controller) sendResponseDown(snoop *Msg, line *Line, replay bool) {
	rsp := snoop.MakeResponse()
	rsp.Src = c.name
	rsp.Dst = snoop.Src
	rsp.Payload = line.cloneData()
	rsp.Size = uint64(c.blockSize)
	rsp.Dirty = line.State == StateM

	latency := c.accessLatency
	if replay {
		latency = c.mshrLatency
	}

	deliveryTime := c.baseTime(line.ReadyTime) + latency
	c.sendDown(rsp, deliveryTime)
	line.advanceReadyTime(deliveryTime - 1)
}

func (c *Controller) sendWriteback(
	cmd Command,
	line *Line,
	dirty bool,
	requester string,
) {
	wb := MsgBuilder{}.
		WithCmd(cmd).
		WithAddress(line.BaseAddr).
		WithSize(uint64(c.blockSize)).
		WithSrc(c.name).
		WithDst(c.lowModule).
		WithRequester(requester).
		WithDirty(dirty || line.State == StateM).
		Build()

	latency := c.tagLatency
	if dirty || c.writebackCleanBlocks {
		wb.Payload = line.cloneData()
		latency = c.accessLatency
	}

	deliveryTime := c.baseTime(line.ReadyTime) + latency
	c.sendDown(wb, deliveryTime)
	line.advanceReadyTime(deliveryTime - 1)
}

func (c *Controller) sendAckInv(snoop *Msg, line *Line) {
	ack := snoop.MakeResponse()
	ack.Cmd = CmdAckInvalidate
	ack.Src = c.name
	ack.Dst = c.lowModule
	ack.Size = uint64(c.blockSize)

	deliveryTime := c.baseTime(line.ReadyTime) + c.tagLatency
	c.sendDown(ack, deliveryTime)
	line.advanceReadyTime(deliveryTime - 1)
}

// forwardFlush sends a flush below. The flush carries the line's data when
// there is valid data, so that a racing snoop never loses a dirty block.
func (c *Controller) forwardFlush(flush *Msg, line *Line) {
	fwd := &Msg{
		ID:        id.Generate(),
		Cmd:       flush.Cmd,
		Addr:      flush.BaseAddr,
		BaseAddr:  flush.BaseAddr,
		Size:      uint64(c.blockSize),
		Src:       c.name,
		Dst:       c.lowModule,
		Requester: flush.Requester,
	}

	latency := c.tagLatency
	readyTime := uint64(0)

	if line != nil {
		readyTime = line.ReadyTime

		if line.State.HoldsData() {
			fwd.Payload = line.cloneData()
			fwd.Dirty = line.State == StateM
			latency = c.accessLatency
		}
	}

	deliveryTime := c.baseTime(readyTime) + latency
	c.sendDown(fwd, deliveryTime)

	if line != nil {
		line.advanceReadyTime(deliveryTime - 1)
	}
}

func (c *Controller) sendFlushResponse(
	flush *Msg,
	success bool,
	readyTime uint64,
	replay bool,
) {
	rsp := flush.MakeResponse()
	rsp.Cmd = CmdFlushResp
	rsp.Src = c.name
	rsp.Dst = flush.Src
	rsp.Success = success

	latency := c.tagLatency
	if replay {
		latency = c.mshrLatency
	}

	c.sendUp(rsp, c.baseTime(readyTime)+latency)
}

// sendInvalidationUp tells the core that a line it may have speculatively
// read is being invalidated.
func (c *Controller) sendInvalidationUp(snoop *Msg, line *Line) {
	inv := &Msg{
		ID:        id.Generate(),
		Cmd:       CmdInvalidate,
		Addr:      snoop.Addr,
		BaseAddr:  snoop.BaseAddr,
		Size:      uint64(c.blockSize),
		Src:       c.name,
		Requester: c.name,
	}

	c.sendUp(inv, c.baseTime(line.ReadyTime)+c.tagLatency)
}

// resend retries a NACKed message with exponential back-off.
func (c *Controller) resend(msg *Msg) {
	shift := msg.Retries
	if shift > 10 {
		shift = 10
	}

	backoff := uint64(1) << uint(shift)
	msg.Retries++

	c.sendDown(msg, c.now()+c.mshrLatency+backoff)
}

package binder

import (
	"time"

	"github.com/arxos-protocol/arxos-go/pkg/frame"
	"github.com/arxos-protocol/arxos-go/pkg/log"
	"github.com/arxos-protocol/arxos-go/pkg/seal"
)

// timeNow is replaced in tests.
var timeNow = time.Now

func frameEvent(wire []byte, nonce uint32, f frame.Frame) *log.FrameEvent {
	fe := log.NewFrameEvent(wire, nonce, f.RecordCount())
	if index, total, ok := frame.ParseIndexHeader(f.Header); ok {
		fe.Index = index
		fe.Total = total
	}
	return fe
}

func (b *Binder) logReject(reason log.RejectReason, data []byte, sec seal.SecurityHeader) {
	b.logger.Log(log.Event{
		Timestamp: timeNow(),
		LinkID:    b.linkID,
		Direction: log.DirectionIn,
		Layer:     log.LayerSeal,
		Category:  log.CategoryReject,
		SenderID:  sec.SenderID,
		Reject: &log.RejectEvent{
			Reason: reason,
			Size:   len(data),
			Nonce:  sec.Nonce,
		},
	})
}

func (b *Binder) logError(layer log.Layer, err error, context string) {
	b.logger.Log(log.Event{
		Timestamp: timeNow(),
		LinkID:    b.linkID,
		Direction: log.DirectionOut,
		Layer:     layer,
		Category:  log.CategoryError,
		SenderID:  b.cfg.SenderID,
		Error: &log.ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (b *Binder) logState(entity log.StateEntity, oldState, newState, reason string) {
	b.logger.Log(log.Event{
		Timestamp: timeNow(),
		LinkID:    b.linkID,
		Layer:     log.LayerLink,
		Category:  log.CategoryState,
		SenderID:  b.cfg.SenderID,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

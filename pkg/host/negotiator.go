package host

import (
	"github.com/safehost-dev/safehost/pkg/geometry"
	"github.com/safehost-dev/safehost/pkg/protocol"
)

// SizeNegotiator orchestrates expand, collapse, and fluid-height resize
// flows for one session. Every negotiated resize produces exactly one
// response envelope; every failure is absorbed here and converted into a
// success:false response or a forced collapse; nothing escalates to the
// router or beyond.
//
// No retry and no sequencing exist beyond the session uid, which is constant
// for the session's lifetime: overlapping requests are not disambiguated and
// the last response wins.
type SizeNegotiator struct {
	session *Session
}

// HandleExpand runs the expansion flow: the target size is the element's
// current size grown by the requested rectangle's per-edge deltas.
func (n *SizeNegotiator) HandleExpand(req *protocol.ExpandRequest) {
	h, w := n.session.collab.Slot.Size()
	n.RequestResize(h+req.HeightDelta(), w+req.WidthDelta(), protocol.ServiceExpandResponse)
}

// HandleCollapse runs the resize flow back to the captured initial size,
// unaffected by any intervening expansions.
func (n *SizeNegotiator) HandleCollapse(_ *protocol.CollapseRequest) {
	h, w := n.session.collapseTarget()
	n.RequestResize(h, w, protocol.ServiceCollapseResponse)
}

// RequestResize invokes the page's asynchronous resize capability and
// answers with one envelope tagged responseService:
//
//   - verified success (post-resize element dimensions match the request):
//     frame mirrored, full response with success:true
//   - reported success but dimensions mismatch: pending resize reset, full
//     response with success:false (the response shape stays uniform)
//   - outright rejection: minimal {uid, success:false} response
func (n *SizeNegotiator) RequestResize(targetHeight, targetWidth int, responseService protocol.Service) {
	s := n.session

	s.collab.Slot.AttemptResize(targetHeight, targetWidth, func(err error) {
		if err != nil {
			s.logger.Debug("resize attempt rejected",
				"height", targetHeight,
				"width", targetWidth,
				"error", err)
			s.metrics.ResizeOutcome(ResizeOutcomeRejected)
			n.respondMinimal(responseService)
			return
		}

		h, w := s.collab.Slot.Size()
		if h != targetHeight || w != targetWidth {
			s.logger.Warn("resize reported success but dimensions mismatch",
				"want_height", targetHeight, "got_height", h,
				"want_width", targetWidth, "got_width", w)
			s.collab.Slot.ResetPendingResize()
			s.metrics.ResizeOutcome(ResizeOutcomeMismatch)
			n.respondFull(responseService, false)
			return
		}

		s.frameSetSize(h, w)
		s.metrics.ResizeOutcome(ResizeOutcomeApplied)
		n.respondFull(responseService, true)
	})
}

// HandleFluidResize runs the creative-initiated height-only flow. A missing
// or non-numeric height is answered by collapsing the slot instead of a
// protocol response: a misbehaving creative is shrunk, not left at an
// undefined size.
func (n *SizeNegotiator) HandleFluidResize(upd *protocol.CreativeGeometryUpdate) {
	s := n.session

	height, ok := upd.RequestedHeight()
	if !ok {
		s.logger.Warn("fluid resize height missing or non-numeric, collapsing slot")
		n.forceCollapse()
		return
	}

	_, width := s.collab.Slot.Size()
	s.collab.Slot.AttemptResize(height, width, func(err error) {
		if err != nil {
			s.logger.Debug("fluid resize rejected, collapsing slot", "error", err)
			s.metrics.ResizeOutcome(ResizeOutcomeRejected)
			n.forceCollapse()
			return
		}

		h, w := s.collab.Slot.Size()
		s.frameSetSize(h, w)
		s.metrics.ResizeOutcome(ResizeOutcomeApplied)

		s.fireImpression()
		n.notifyResizeComplete()
	})
}

// notifyResizeComplete posts the fixed notification after a successful fluid
// resize.
func (n *SizeNegotiator) notifyResizeComplete() {
	s := n.session
	payload, err := protocol.EncodePayload(&protocol.ResizeComplete{UID: s.uid})
	if err != nil {
		s.logger.Error("resize-complete payload encode failed", "error", err)
		return
	}
	s.send(protocol.ServiceResizeComplete, payload)
}

// respondFull sends the full response shape built from the latest cached
// geometry. Both success and dimension-mismatch outcomes use it.
func (n *SizeNegotiator) respondFull(svc protocol.Service, success bool) {
	s := n.session

	var expansion geometry.Rect
	geomText := ""
	if geom, ok := s.CurrentGeometry(); ok {
		expansion = geom.AllowedExpansion
		if text, err := geom.Serialize(); err == nil {
			geomText = text
		} else {
			s.logger.Error("geometry serialize failed", "error", err)
		}
	}

	payload, err := protocol.EncodePayload(&protocol.ResizeResponse{
		UID:          s.uid,
		Success:      success,
		NewGeometry:  geomText,
		ExpandTop:    expansion.Top,
		ExpandRight:  expansion.Right,
		ExpandBottom: expansion.Bottom,
		ExpandLeft:   expansion.Left,
		Push:         true,
	})
	if err != nil {
		s.logger.Error("resize response encode failed", "error", err)
		return
	}
	s.send(svc, payload)
}

// respondMinimal sends the minimal rejection shape: uid and success only.
func (n *SizeNegotiator) respondMinimal(svc protocol.Service) {
	s := n.session
	payload, err := protocol.EncodePayload(&protocol.ResizeResult{
		UID:     s.uid,
		Success: false,
	})
	if err != nil {
		s.logger.Error("resize result encode failed", "error", err)
		return
	}
	s.send(svc, payload)
}

// forceCollapse shrinks the slot back to its initial size without sending a
// protocol response.
func (n *SizeNegotiator) forceCollapse() {
	s := n.session
	h, w := s.collapseTarget()

	s.collab.Slot.AttemptResize(h, w, func(err error) {
		if err != nil {
			s.logger.Warn("forced collapse failed", "error", err)
			return
		}
		gotH, gotW := s.collab.Slot.Size()
		s.frameSetSize(gotH, gotW)
	})
}

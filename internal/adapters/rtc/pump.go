package rtc

import (
	"context"
	"errors"
	"io"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"

	"github.com/dkeye/avatarstream/internal/core"
)

// TrackInfo describes the track a packet belongs to.
type TrackInfo struct {
	ID        string
	Kind      core.TrackKind
	MimeType  string
	ClockRate uint32
	Channels  uint16
}

// PacketSink receives the RTP of subscribed tracks, e.g. for recording or
// decoding by the host. Calls for different tracks may be concurrent.
type PacketSink interface {
	WriteRTP(t TrackInfo, pkt *rtp.Packet) error
}

type rtpReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// pump drains one inbound track until it ends. Packets are always read so
// the engine's interceptors keep running, even with no sink attached.
func pump(ctx context.Context, src rtpReader, info TrackInfo, sink PacketSink, logger *zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("pump ctx done")
			return
		default:
		}
		pkt, _, err := src.ReadRTP()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug().Msg("track ended")
			} else {
				logger.Warn().Err(err).Msg("read RTP error, stopping")
			}
			return
		}
		if sink == nil {
			continue
		}
		if err := sink.WriteRTP(info, pkt); err != nil {
			logger.Warn().Err(err).Msg("sink write error, detaching sink")
			sink = nil
		}
	}
}

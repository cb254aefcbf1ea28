package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"

	"github.com/dkeye/avatarstream/internal/adapters/signal"
	"github.com/dkeye/avatarstream/internal/audio"
	"github.com/dkeye/avatarstream/internal/core"
	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/frames"
	"github.com/dkeye/avatarstream/internal/streaming"
)

func requireSession(op string, sid core.SessionID) error {
	return streaming.RequireSession(op, string(sid))
}

// StartVoiceChat opens the control socket and streams microphone audio over
// it. It is a no-op while the socket is open and reconnects after the server
// has closed it. A socket open failure is returned as is. On success it waits
// for the settle delay before returning.
func (c *Controller) StartVoiceChat(ctx context.Context, opts domain.VoiceChatOptions) error {
	c.mu.Lock()
	sid, lang, prev := c.sessionID, c.language, c.socket
	c.mu.Unlock()
	if err := requireSession("startVoiceChat", sid); err != nil {
		return err
	}
	if prev != nil {
		if prev.IsOpen() {
			return nil
		}
		// The server closed the socket; release what is left and reconnect.
		c.CloseVoiceChat()
	}
	if c.cfg.Microphone == nil {
		return ErrNoMicrophone
	}

	schema, err := c.cfg.LoadSchema()
	if err != nil {
		return err
	}
	sock := c.cfg.Socket(c.emit, schema)
	err = sock.Open(ctx, signal.Params{
		BaseURL:         c.cfg.SocketBaseURL,
		SessionID:       sid,
		Token:           c.cfg.Token,
		SilenceResponse: opts.UseSilencePrompt,
		STTLanguage:     lang,
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.socket, c.schema = sock, schema
	c.mu.Unlock()

	src, err := c.cfg.Microphone.Open(ctx, audio.VoiceChatConstraints())
	if err != nil {
		c.CloseVoiceChat()
		return err
	}
	proc := audio.NewProcessor(src, audio.BufferSize, c.audioHandler(sock, schema))
	c.mu.Lock()
	c.source, c.processor = src, proc
	c.mu.Unlock()
	proc.Start()

	c.logger.Info().Str("sid", string(sid)).Msg("voice chat started")

	t := time.NewTimer(c.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) audioHandler(sock ControlSocket, schema *frames.Schema) func([]float32) {
	return func(buf []float32) {
		if !sock.IsOpen() {
			return
		}
		frame, err := schema.EncodeAudio(audio.FloatToS16PCM(buf), frames.DefaultSampleRate, frames.DefaultNumChannels)
		if err != nil {
			c.logger.Error().Err(err).Msg("encode audio frame")
			return
		}
		if err := sock.Send(frame); err != nil {
			c.logger.Debug().Err(err).Msg("audio frame dropped")
		}
	}
}

// CloseVoiceChat releases the processor, the microphone and the socket.
// Each step runs even if an earlier one fails; nothing is returned.
func (c *Controller) CloseVoiceChat() {
	c.mu.Lock()
	proc, src, sock := c.processor, c.source, c.socket
	c.processor, c.source, c.socket, c.schema = nil, nil, nil, nil
	c.mu.Unlock()

	if proc != nil {
		guard(c.logger, "disconnect processor", func() error {
			proc.Disconnect()
			return nil
		})
	}
	if src != nil {
		guard(c.logger, "stop microphone", src.Close)
	}
	if sock != nil {
		guard(c.logger, "close socket", sock.Close)
	}
}

// guard runs a teardown step, logging its error or panic.
func guard(logger zerolog.Logger, step string, fn func() error) {
	var err error
	if r := panics.Try(func() { err = fn() }); r != nil {
		logger.Error().Str("step", step).Msgf("teardown panic: %v", r.Value)
		return
	}
	if err != nil {
		logger.Warn().Err(err).Str("step", step).Msg("teardown error")
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/avatarstream/internal/adapters/rtc"
	"github.com/dkeye/avatarstream/internal/app"
	"github.com/dkeye/avatarstream/internal/audio"
	"github.com/dkeye/avatarstream/internal/config"
	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/events"
	"github.com/dkeye/avatarstream/internal/streaming"
)

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Start an avatar, make it speak, then stop it",
	Long: `Start a streaming avatar session and drive it from the terminal.

A token is issued with the API key, the avatar is started, --text is spoken
and --wav (a PCM WAV file) is streamed as the user's microphone. The session
stays up for --hold, or until interrupted, and is then stopped. With --record
the avatar's tracks are written to .ogg, .ivf or .h264 files.

Session events are printed as they arrive.

Examples:
  avatarctl talk --avatar Wayne_20240711 --text "Hello" --hold 5s
  avatarctl talk --text "Repeat after me" --task-type repeat --task-mode sync
  avatarctl talk --wav question.wav --language en --hold 30s
  avatarctl talk --text "Hello" --record ./out`,
	Args: cobra.NoArgs,
	RunE: runTalk,
}

func init() {
	addTalkFlags(talkCmd)
}

func addTalkFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("avatar", "", "avatar id (default: avatar_id from config)")
	f.String("quality", "", "low, medium or high (default: quality from config)")
	f.String("voice", "", "voice id (default: voice_id from config)")
	f.String("language", "", "speech-to-text language for voice chat")
	f.String("text", "", "text for the avatar to speak")
	f.String("task-type", string(domain.TaskTypeChat), "chat or repeat")
	f.String("task-mode", string(domain.TaskModeAsync), "sync or async")
	f.String("wav", "", "WAV file streamed as the user's microphone")
	f.Bool("silence-prompt", false, "let the avatar prompt after user silence")
	f.Duration("hold", 10*time.Second, "how long to keep the session up")
	f.String("record", "", "directory to save the avatar's audio and video tracks")
}

type talkOptions struct {
	start         domain.StartAvatarRequest
	speak         *domain.SpeakRequest
	wav           string
	record        string
	silencePrompt bool
	hold          time.Duration
}

func talkOptionsFrom(cmd *cobra.Command, cfg *config.Config) (talkOptions, error) {
	f := cmd.Flags()
	str := func(name, fallback string) string {
		v, _ := f.GetString(name)
		if v == "" {
			return fallback
		}
		return v
	}

	opts := talkOptions{
		start: domain.StartAvatarRequest{
			AvatarID: str("avatar", cfg.AvatarID),
			Quality:  domain.Quality(str("quality", cfg.Quality)),
			Language: str("language", cfg.Language),
		},
		wav:    str("wav", ""),
		record: str("record", ""),
	}
	if voice := str("voice", cfg.VoiceID); voice != "" {
		opts.start.Voice = domain.VoiceSetting{VoiceID: voice}
	}
	if err := domain.Validate(opts.start); err != nil {
		return opts, fmt.Errorf("invalid avatar options: %w", err)
	}

	if text := str("text", ""); text != "" {
		speak := domain.SpeakRequest{
			Text:     text,
			TaskType: domain.TaskType(str("task-type", "")),
			TaskMode: domain.TaskMode(str("task-mode", "")),
		}
		if err := domain.Validate(speak); err != nil {
			return opts, fmt.Errorf("invalid speak options: %w", err)
		}
		opts.speak = &speak
	}
	if opts.speak == nil && opts.wav == "" {
		return opts, errors.New("nothing to do: pass --text or --wav")
	}

	opts.silencePrompt, _ = f.GetBool("silence-prompt")
	opts.hold, _ = f.GetDuration("hold")
	return opts, nil
}

func runTalk(cmd *cobra.Command, args []string) error {
	cfg, err := requireAPIKey()
	if err != nil {
		return err
	}
	opts, err := talkOptionsFrom(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tokenCtx, tokenCancel := context.WithTimeout(ctx, requestTimeout)
	token, err := keyedClient(cfg).CreateToken(tokenCtx)
	tokenCancel()
	if err != nil {
		return fmt.Errorf("create token failed: %w", err)
	}
	printVerbose("token issued")

	var mic audio.Microphone
	if opts.wav != "" {
		m, err := audio.OpenWAV(opts.wav)
		if err != nil {
			return fmt.Errorf("open %s: %w", opts.wav, err)
		}
		mic = m
	}

	rtcOpts := rtc.DefaultOptions()
	rtcOpts.TrickleICE = cfg.TrickleICE
	if len(cfg.ICEServers) > 0 {
		rtcOpts.ICEServers = rtc.ICEServersFrom([]domain.ICEServer{{URLs: cfg.ICEServers}})
	}
	if opts.record != "" {
		rec, err := rtc.NewRecorder(opts.record)
		if err != nil {
			return err
		}
		// Runs after the session is stopped so the files are complete.
		defer rec.Close()
		rtcOpts.Sink = rec
	}

	ctrl := app.New(app.Config{
		API:           streaming.New(streaming.WithBaseURL(cfg.APIBaseURL), streaming.WithToken(token)),
		Token:         token,
		SocketBaseURL: cfg.SocketBaseURL,
		Microphone:    mic,
		SettleDelay:   cfg.VoiceChatSettleDelay,
		TrickleICE:    cfg.TrickleICE,
		Transport:     app.DefaultTransport(rtcOpts),
	})
	defer ctrl.Close()
	watchEvents(ctrl)

	session, err := ctrl.CreateStartAvatar(ctx, opts.start)
	if err != nil {
		// A failure after create leaves a session to close.
		ctrl.StopAvatar(context.Background())
		return fmt.Errorf("start avatar failed: %w", err)
	}
	defer ctrl.StopAvatar(context.Background())
	log.Info().Str("sid", session.SessionID).Msg("avatar started")

	if mic != nil {
		if err := ctrl.StartVoiceChat(ctx, domain.VoiceChatOptions{UseSilencePrompt: opts.silencePrompt}); err != nil {
			return fmt.Errorf("start voice chat failed: %w", err)
		}
	}

	if opts.speak != nil {
		res, err := ctrl.Speak(ctx, *opts.speak)
		if err != nil {
			return fmt.Errorf("speak failed: %w", err)
		}
		if res != nil {
			if err := outputResult(res); err != nil {
				return err
			}
		}
	}

	t := time.NewTimer(opts.hold)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return nil
}

// watchEvents prints every session event to the log.
func watchEvents(ctrl *app.Controller) {
	for _, typ := range []events.Type{
		events.StreamReady, events.StreamDisconnected,
		events.AvatarStartTalking, events.AvatarStopTalking,
		events.AvatarTalkingMessage, events.AvatarEndMessage,
		events.UserStart, events.UserStop,
		events.UserTalkingMessage, events.UserEndMessage,
		events.UserSilence,
	} {
		ctrl.On(typ, func(e events.Event) {
			l := log.Info().Str("event", string(e.Type))
			switch d := e.Detail.(type) {
			case events.MessageDetail:
				l = l.Str("task_id", d.TaskID).Str("message", d.Message)
			case events.DisconnectedDetail:
				l = l.Str("reason", d.Reason)
			case events.SilenceDetail:
				l = l.Int("silence_times", d.SilenceTimes).Float64("count_down", d.CountDown)
			}
			l.Msg("session event")
		})
	}
}

package bootstrap

import (
	"context"

	"go.uber.org/zap"

	"voicelist/internal/audio"
	"voicelist/internal/config"
	"voicelist/internal/logging"
	"voicelist/internal/mainloop"
	"voicelist/internal/notify"
	"voicelist/internal/ports"
	"voicelist/internal/providers/deepgram"
	"voicelist/internal/providers/openaitts"
	"voicelist/internal/recognition"
	"voicelist/internal/usecase"
)

// Services is the assembled runtime graph. The caller runs Loop and must
// touch Controller only from callbacks posted to it.
type Services struct {
	Controller *usecase.InteractionController
	Loop       *mainloop.Loop
	Config     config.Config
	Logger     *zap.Logger
}

// Build loads configuration and wires all backend dependencies. ctx bounds
// every recognition attempt and the synthesis engine.
func Build(ctx context.Context, events ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return Services{}, err
	}
	if cfg.File != "" {
		logger.Info("config file applied", zap.String("path", cfg.File))
	}

	return Wire(ctx, cfg, logger, events), nil
}

// Wire assembles the runtime graph from an already loaded configuration.
func Wire(ctx context.Context, cfg config.Config, logger *zap.Logger, events ports.EventSink) Services {
	if logger == nil {
		logger = zap.NewNop()
	}

	loop := mainloop.New()
	sink := notify.WrapSink(events, notify.New(cfg.Notify.Desktop, logger.Named("notify")))

	recognizer := recognition.NewStreamingRecognizer(
		audio.NewRecorder(cfg.Audio.RecorderCommand),
		deepgram.NewProvider(deepgram.Config{
			APIKey:       cfg.Deepgram.APIKey,
			APIBaseURL:   cfg.Deepgram.APIBaseURL,
			Model:        cfg.Deepgram.Model,
			Language:     cfg.Deepgram.Language,
			SmartFormat:  cfg.Deepgram.SmartFormat,
			Endpointing:  cfg.Deepgram.EndpointMS,
			Alternatives: cfg.Deepgram.Alternatives,
		}),
		recognition.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			ChunkSize:      cfg.Recognition.ChunkSize,
			StreamingGrace: cfg.Recognition.StreamingGrace,
			MaxUtterance:   cfg.Recognition.MaxUtterance,
		},
		logger.Named("recognition"),
	)

	synthesizer := openaitts.NewCapability(
		openaitts.Config{
			APIKey:      cfg.Synthesis.APIKey,
			BaseURL:     cfg.Synthesis.BaseURL,
			InitTimeout: cfg.Synthesis.InitTimeout,
		},
		audio.NewPlayer(cfg.Audio.PlayerCommand),
		logger.Named("synthesis"),
	)

	controller := usecase.NewInteractionController(
		ctx,
		recognizer,
		synthesizer,
		loop,
		sink,
		logger.Named("controller"),
		usecase.Config{
			Prompt:          cfg.Recognition.Prompt,
			SynthesisEngine: cfg.Synthesis.Engine,
		},
	)

	return Services{Controller: controller, Loop: loop, Config: cfg, Logger: logger}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"voicelist/internal/bootstrap"
	"voicelist/internal/config"
	"voicelist/internal/domain"
	"voicelist/internal/mainloop"
	"voicelist/internal/usecase"
)

const (
	eventList      = "voicelist:list"
	eventNotice    = "voicelist:notice"
	eventReadiness = "voicelist:readiness"
	eventError     = "voicelist:error"

	shutdownTimeout = 3 * time.Second
)

// App is the Wails application root. It also serves as the controller's
// event sink, forwarding state to the frontend as runtime events.
type App struct {
	ctx  context.Context
	emit func(ctx context.Context, name string, data ...interface{})

	controller *usecase.InteractionController
	loop       *mainloop.Loop
	logger     *zap.Logger
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a)
	if err != nil {
		a.bootErr = err
		a.ActionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.logger = services.Logger
	a.controller = services.Controller
	a.loop = services.Loop

	go func() {
		if err := a.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("main loop stopped", zap.Error(err))
		}
	}()
}

func (a *App) shutdown(_ context.Context) {
	if a.loop == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.loop.Call(ctx, a.controller.Close)
	if err != nil && !errors.Is(err, mainloop.ErrStopped) {
		a.logger.Warn("shutdown incomplete", zap.Error(err))
	}
	a.loop.Close()
	_ = a.logger.Sync()
}

// AddItem starts speech recognition; the transcript is appended when it
// arrives.
func (a *App) AddItem() error {
	return a.dispatch(domain.AddAction())
}

// DeleteItem removes the most recent item, if any.
func (a *App) DeleteItem() error {
	return a.dispatch(domain.DeleteAction())
}

// SelectItem reads the item at index aloud when speech output is ready.
func (a *App) SelectItem(index int) error {
	return a.dispatch(domain.SelectAction(index))
}

// GetItems returns the current list.
func (a *App) GetItems() []string {
	items := make(chan []string, 1)
	if a.call(func() error {
		items <- a.controller.Items()
		return nil
	}) != nil {
		return []string{}
	}
	return <-items
}

// GetStatus returns the current controller status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{Synthesis: domain.SynthesisFailed, Message: a.bootErr.Error()}
		}
		return domain.Status{Synthesis: domain.SynthesisUninitialized}
	}

	status := make(chan domain.Status, 1)
	if err := a.call(func() error {
		status <- a.controller.Status()
		return nil
	}); err != nil {
		return domain.Status{Message: err.Error()}
	}
	return <-status
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"recognizer":         "Deepgram",
		"recognizerModel":    a.cfg.Deepgram.Model,
		"language":           a.cfg.Deepgram.Language,
		"recognizerReady":    strconv.FormatBool(a.cfg.Deepgram.APIKey != ""),
		"prompt":             a.cfg.Recognition.Prompt,
		"synthesisEngine":    a.cfg.Synthesis.Engine,
		"synthesisKeyLoaded": strconv.FormatBool(a.cfg.Synthesis.APIKey != ""),
		"audioInput":         a.cfg.Audio.InputDevice,
		"audioInputFormat":   a.cfg.Audio.InputFormat,
		"configFile":         a.cfg.File,
	}
}

func (a *App) dispatch(action domain.Action) error {
	err := a.call(func() error {
		return a.controller.Dispatch(action)
	})
	if err == nil {
		return nil
	}

	code := domain.ErrorCodeAction
	if errors.Is(err, usecase.ErrControllerClosed) || errors.Is(err, mainloop.ErrStopped) {
		code = domain.ErrorCodeClosed
	}
	a.ActionError(code, err.Error())
	return err
}

// call runs fn on the main loop, where the controller lives.
func (a *App) call(fn func() error) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.loop.Call(a.ctx, fn)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil || a.loop == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ListChanged emits the full list after every mutation.
func (a *App) ListChanged(items []string) {
	a.send(eventList, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Notice emits a transient notice such as recognition being unavailable.
func (a *App) Notice(code domain.NoticeCode, message string) {
	a.send(eventNotice, map[string]string{
		"code":    string(code),
		"message": message,
	})
}

// SynthesisReadinessChanged emits speech output readiness.
func (a *App) SynthesisReadinessChanged(readiness domain.SynthesisReadiness) {
	a.send(eventReadiness, map[string]string{
		"readiness": string(readiness),
		"message":   readinessMessage(readiness),
	})
}

// ActionError emits backend errors to the UI.
func (a *App) ActionError(code domain.ErrorCode, detail string) {
	a.send(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) send(name string, payload interface{}) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, payload)
}

func readinessMessage(readiness domain.SynthesisReadiness) string {
	switch readiness {
	case domain.SynthesisInitializing:
		return "Preparing speech output..."
	case domain.SynthesisReady:
		return "Tap an item to hear it"
	case domain.SynthesisFailed:
		return "Speech output unavailable"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAction:
		return "Action failed"
	case domain.ErrorCodeClosed:
		return "Application is shutting down"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

package handler

import (
	"context"

	"relaybot/internal/domain"
	"relaybot/internal/middleware"
	"relaybot/internal/service"
	"relaybot/internal/session"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Services bundles the core services the handler calls into
type Services struct {
	Directory *service.DirectoryService
	Pairing   *service.PairingService
	Relay     *service.RelayService
	Access    *service.AccessService
}

// Handler manages all bot interactions
type Handler struct {
	ctx       context.Context
	bot       *tele.Bot
	directory *service.DirectoryService
	pairing   *service.PairingService
	relay     *service.RelayService
	access    *service.AccessService
	sessions  *session.Store
	notifier  Notifier
	sequencer *middleware.Sequencer
	logger    *zap.Logger

	historyLimit int
}

// NewHandler creates a new handler instance
func NewHandler(
	ctx context.Context,
	bot *tele.Bot,
	svc Services,
	sessions *session.Store,
	notifier Notifier,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		ctx:          ctx,
		bot:          bot,
		directory:    svc.Directory,
		pairing:      svc.Pairing,
		relay:        svc.Relay,
		access:       svc.Access,
		sessions:     sessions,
		notifier:     notifier,
		sequencer:    middleware.NewSequencer(),
		logger:       logger,
		historyLimit: service.DefaultHistoryLimit,
	}
}

// RegisterHandlers registers all bot handlers and routes updates through the sequencer
func (h *Handler) RegisterHandlers() {
	h.bot.Poller = h.sequencer.Poller(h.bot.Poller)
	h.bot.Use(h.sequencer.Ordered(), middleware.TrackMessages(h.sessions))

	// Commands
	h.bot.Handle("/start", h.handleStart)
	h.bot.Handle("/end", h.handleEnd)
	h.bot.Handle("/kill", h.handleKill, middleware.PrivilegedOnly(h.access, h.logger))

	// Text messages
	h.bot.Handle(tele.OnText, h.handleText)

	// Callback queries (inline buttons)
	h.bot.Handle(&btnStart, h.handleLanguageMenu)
	h.bot.Handle(&btnCreateChat, h.handleCreateChat)
	h.bot.Handle(&btnJoinChat, h.handleJoinChat)
	h.bot.Handle(&btnEndChat, h.handleEnd)
	h.bot.Handle(&btnExportHistory, h.handleExportHistory)
	h.bot.Handle(&btnClearHistory, h.handleClearHistory)
	h.bot.Handle(&btnSettings, h.handleSettings)
	h.bot.Handle(&btnDialect, h.handleDialectPrompt)
	h.bot.Handle(&btnLocation, h.handleLocationPrompt)
	h.bot.Handle(&btnChangeLanguage, h.handleLanguageMenu)
	h.bot.Handle(&btnSupport, h.handleSupport)
	h.bot.Handle(&btnCancel, h.handleCancel)
	h.bot.Handle(&btnMainMenu, h.handleMainMenu)

	// Generic callback handler for dynamic data
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

// Inline keyboard buttons
var (
	btnStart = tele.Btn{
		Unique: "start",
		Text:   "Start",
	}
	btnCreateChat = tele.Btn{
		Unique: "create_chat",
		Text:   "Create Chat",
	}
	btnJoinChat = tele.Btn{
		Unique: "join_chat",
		Text:   "Join Chat",
	}
	btnEndChat = tele.Btn{
		Unique: "end_chat",
		Text:   "End Chat",
	}
	btnExportHistory = tele.Btn{
		Unique: "export_history",
		Text:   "Export History",
	}
	btnClearHistory = tele.Btn{
		Unique: "clear_history",
		Text:   "Clear History",
	}
	btnSettings = tele.Btn{
		Unique: "settings",
		Text:   "Settings",
	}
	btnDialect = tele.Btn{
		Unique: "set_dialect",
		Text:   "Dialect",
	}
	btnLocation = tele.Btn{
		Unique: "set_location",
		Text:   "Location",
	}
	btnChangeLanguage = tele.Btn{
		Unique: "change_language",
		Text:   "Change Language",
	}
	btnSupport = tele.Btn{
		Unique: "support",
		Text:   "Support",
	}
	btnCancel = tele.Btn{
		Unique: "cancel",
		Text:   "Cancel",
	}
	btnMainMenu = tele.Btn{
		Unique: "main_menu",
		Text:   "Back",
	}
)

const languageDataPrefix = "lang_"

// startMarkup returns the welcome keyboard
func startMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(btnStart))
	return menu
}

// languageMarkup lists the supported languages three per row
func languageMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	rows := []tele.Row{}
	row := tele.Row{}
	for _, lang := range domain.SupportedLanguages {
		row = append(row, menu.Data(lang.Name, languageDataPrefix+lang.Code))
		if len(row) == 3 {
			rows = append(rows, row)
			row = tele.Row{}
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	menu.Inline(rows...)
	return menu
}

// mainMenuMarkup returns the menu shown to unpaired users
func mainMenuMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnJoinChat, btnCreateChat),
		menu.Row(btnClearHistory),
		menu.Row(btnSettings, btnSupport),
	)
	return menu
}

// chatMenuMarkup returns the menu shown while paired
func chatMenuMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnEndChat),
		menu.Row(btnExportHistory),
		menu.Row(btnSettings, btnSupport),
	)
	return menu
}

// settingsMarkup returns the profile settings keyboard
func settingsMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnDialect, btnLocation),
		menu.Row(btnChangeLanguage),
		menu.Row(btnMainMenu),
	)
	return menu
}

// cancelMarkup offers a way out of a pending prompt
func cancelMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(btnCancel))
	return menu
}

// menuFor picks the keyboard matching the user's pairing state
func menuFor(u *domain.UserProfile) *tele.ReplyMarkup {
	if u.IsPaired() {
		return chatMenuMarkup()
	}
	return mainMenuMarkup()
}

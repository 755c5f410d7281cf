package app

import (
	"fmt"
	"net/http"
	"time"

	"karsaazai/pkg/ai"
	"karsaazai/pkg/kyc"
	"karsaazai/pkg/storage"
	"karsaazai/pkg/store"
)

const defaultHistoryLimit = 10

// Config holds runtime configuration for the core application.
type Config struct {
	Store     store.Store
	Chat      ai.TextGenerator
	ChatModel string
	Inference *ai.InferenceClient

	Translation    ai.TranslationModels
	SentimentModel string
	CaptionModel   string
	OCRModel       string
	SpeechModel    string

	KYC   *kyc.Client
	Media storage.ObjectStore

	HistoryLimit int
	Debug        bool
}

// App is the core application service wiring storage, model clients, and the
// fallback router together. One instance serves all requests; it holds no
// per-request state.
type App struct {
	store     store.Store
	chat      ai.TextGenerator
	inference *ai.InferenceClient
	router    *ai.Router

	captionModel string
	ocrModel     string
	speechModel  string

	kyc   *kyc.Client
	media storage.ObjectStore

	fetchClient  *http.Client
	historyLimit int
	debug        bool
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Chat == nil {
		return nil, fmt.Errorf("chat generator required")
	}
	if cfg.Inference == nil {
		return nil, fmt.Errorf("inference client required")
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	kycClient := cfg.KYC
	if kycClient == nil {
		kycClient = kyc.NewClient("")
	}
	return &App{
		store:        cfg.Store,
		chat:         cfg.Chat,
		inference:    cfg.Inference,
		router:       ai.NewRouter(cfg.Chat, cfg.ChatModel, cfg.Inference, cfg.Translation, cfg.SentimentModel),
		captionModel: cfg.CaptionModel,
		ocrModel:     cfg.OCRModel,
		speechModel:  cfg.SpeechModel,
		kyc:          kycClient,
		media:        cfg.Media,
		fetchClient:  &http.Client{Timeout: 30 * time.Second},
		historyLimit: historyLimit,
		debug:        cfg.Debug,
	}, nil
}

// Debug reports whether verbose diagnostic responses are enabled.
func (a *App) Debug() bool {
	return a.debug
}

package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	// TTL of 0 keeps conversations forever.
	TTL            time.Duration `envconfig:"CONVERSATION_TTL" default:"0s"`
	HistoryTurns   int           `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"10"`
	PersistTimeout time.Duration `envconfig:"CONVERSATION_PERSIST_TIMEOUT" default:"3s"`
}

type KnowledgeConfig struct {
	Path string `envconfig:"KNOWLEDGE_BASE_PATH" default:"knowledge/kb.json"`
	TopK int    `envconfig:"KNOWLEDGE_TOP_K" default:"2"`
}

type IntentConfig struct {
	FAQKeywords  []string `envconfig:"INTENT_FAQ_KEYWORDS" default:"iade,kargo,ödeme,policy,faq"`
	ToolKeywords []string `envconfig:"INTENT_TOOL_KEYWORDS" default:"sipariş,order,takip,shipping,ücret,hesapla"`
}

type ResponderConfig struct {
	APIKey      string        `envconfig:"GEMINI_API_KEY"`
	BaseURL     string        `envconfig:"GEMINI_BASE_URL"`
	Model       string        `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"RESPONSE_MAX_TOKENS" default:"1024"`
	Temperature float32       `envconfig:"RESPONSE_TEMPERATURE" default:"0.2"`
	Timeout     time.Duration `envconfig:"RESPONSE_TIMEOUT" default:"8s"`
}

// Enabled reports whether an LLM responder should be constructed.
func (c ResponderConfig) Enabled() bool {
	return c.APIKey != ""
}

type ResponsePromptConfig struct {
	AssistantName string `envconfig:"ASSISTANT_NAME" default:"Etkin.ai WebChat"`
}

// StoreConfig selects the conversation store: memory, redis or sqlite.
type StoreConfig struct {
	Driver string `envconfig:"STORE_DRIVER" default:"memory"`
}

type ServerConfig struct {
	Addr           string   `envconfig:"SERVER_ADDR" default:":8000"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

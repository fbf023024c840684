package ai

// Provider kinds accepted by Config.Provider.
const (
	// ProviderGemini talks to the Google Gemini API.
	ProviderGemini = "gemini"
	// ProviderOpenAI talks to any OpenAI-compatible API (OpenAI, Ollama, vLLM, ...).
	ProviderOpenAI = "openai"
)

// Default models per provider.
const (
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
	DefaultGeminiChatModel      = "gemini-1.5-flash"
	DefaultOpenAIHost           = "http://localhost:11434/v1"
	DefaultOpenAIEmbeddingModel = "embeddinggemma"
	DefaultOpenAIChatModel      = "qwen2.5:3b"
)

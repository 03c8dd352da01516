package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// Conversation behavior
	ListenFirst bool
	LangMode    string // "auto", "en" or "zh-tw"

	// Generation engine
	LLMModel     string
	OpenAIKey    string
	TTSVoiceEN   string
	TTSVoiceZhTW string

	// Quality filter thresholds
	MinTranscriptChars  int
	MinMeaningfulTokens int
	GarbledMaxRatio     float64

	// Session pacing
	SessionLifetime   time.Duration
	SilenceTimeout    time.Duration
	MaxSilenceRetries int
	MaxRepairTurns    int
	MinQuestions      int
	MaxQuestions      int
	WatchdogTick      time.Duration

	// Backend API
	APIURL   string
	APIToken string

	// Shared secret for signed /join-room webhooks; empty disables the check.
	WebhookSecret string

	// Room transport
	RoomWSURL string

	// Transcript archive storage
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - reply generation will not work")
	}

	apiURL := os.Getenv("NEXT_PUBLIC_APP_URL")
	if apiURL == "" {
		apiURL = "http://localhost:3000"
	}

	roomWSURL := os.Getenv("ROOM_WS_URL")
	if roomWSURL == "" {
		log.Println("Warning: ROOM_WS_URL not set - agent cannot join rooms")
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL / SUPABASE_SERVICE_ROLE_KEY not set - transcript archiving disabled")
	}
	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		bucket = "transcripts"
	}

	langMode := os.Getenv("LANG_MODE")
	switch langMode {
	case "auto", "en", "zh-tw":
	case "":
		langMode = "auto"
	default:
		log.Printf("Warning: unknown LANG_MODE %q, falling back to auto", langMode)
		langMode = "auto"
	}

	cfg := Config{
		HTTPAddress: addr,

		ListenFirst: envBool("LISTEN_FIRST", false),
		LangMode:    langMode,

		LLMModel:     envString("LLM_MODEL", "gpt-4o"),
		OpenAIKey:    openAIKey,
		TTSVoiceEN:   envString("TTS_VOICE_EN", "alloy"),
		TTSVoiceZhTW: envString("TTS_VOICE_ZH_TW", "nova"),

		MinTranscriptChars:  envInt("MIN_TRANSCRIPT_CHARS", 2),
		MinMeaningfulTokens: envInt("MIN_MEANINGFUL_TOKENS", 1),
		GarbledMaxRatio:     envFloat("GARBLED_MAX_RATIO", 0.3),

		SessionLifetime:   envSeconds("SESSION_LIFETIME_S", 3600),
		SilenceTimeout:    envSeconds("SILENCE_TIMEOUT_S", 30),
		MaxSilenceRetries: envInt("MAX_SILENCE_RETRIES", 3),
		MaxRepairTurns:    envInt("MAX_REPAIR_TURNS", 3),
		MinQuestions:      envInt("MIN_QUESTIONS", 3),
		MaxQuestions:      envInt("MAX_QUESTIONS", 6),
		WatchdogTick:      envSeconds("WATCHDOG_TICK_S", 5),

		APIURL:   apiURL,
		APIToken: os.Getenv("API_TOKEN"),

		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		RoomWSURL: roomWSURL,

		SupabaseURL:        supabaseURL,
		SupabaseServiceKey: supabaseKey,
		SupabaseBucket:     bucket,
	}

	log.Printf("config: HTTP_ADDRESS=%s LANG_MODE=%s LLM_MODEL=%s", cfg.HTTPAddress, cfg.LangMode, cfg.LLMModel)
	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %v", key, v, def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %v", key, v, def)
		return def
	}
	return f
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Default configuration values (production)
const (
	DefaultAddr     = ":8080"
	DefaultSTUN     = "stun:stun.l.google.com:19302,stun:stun1.l.google.com:19302"
	DefaultTURN     = "" // optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""
	DefaultRooms    = "general,gaming,music,help,voice"
	DefaultLogLevel = "info"
)

// Config holds application configuration
type Config struct {
	// Addr is the HTTP listen address
	Addr string

	// AllowedOrigins restricts websocket upgrades; empty allows all (dev)
	AllowedOrigins []string

	// ICE servers handed to clients via /api/webrtc/config
	STUNServers []string
	TURNServer  string
	TURNUser    string
	TURNPass    string

	// DefaultRooms are the protected voice rooms that survive being empty
	DefaultRooms []string

	// Logging
	LogLevel string
	LogFile  string
	Dev      bool
}

// Options for loading config with CLI flag overrides
type Options struct {
	Addr     string
	LogLevel string
	Dev      bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (including a .env file if present)
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	// A missing .env file is fine; env vars and defaults still apply.
	_ = godotenv.Load()

	addr := opts.Addr
	if addr == "" {
		addr = os.Getenv("ADDR")
	}
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	logLevel := opts.LogLevel
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	stun := os.Getenv("STUN_SERVERS")
	if stun == "" {
		stun = DefaultSTUN
	}

	turnServer := os.Getenv("TURN_SERVER")
	if turnServer == "" {
		turnServer = DefaultTURN
	}
	turnUser := os.Getenv("TURN_USERNAME")
	if turnUser == "" {
		turnUser = DefaultTURNUser
	}
	turnPass := os.Getenv("TURN_PASSWORD")
	if turnPass == "" {
		turnPass = DefaultTURNPass
	}

	rooms := os.Getenv("DEFAULT_ROOMS")
	if rooms == "" {
		rooms = DefaultRooms
	}

	dev := opts.Dev
	if !dev {
		dev, _ = strconv.ParseBool(os.Getenv("DEV"))
	}

	return &Config{
		Addr:           addr,
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		STUNServers:    splitList(stun),
		TURNServer:     turnServer,
		TURNUser:       turnUser,
		TURNPass:       turnPass,
		DefaultRooms:   splitList(rooms),
		LogLevel:       logLevel,
		LogFile:        os.Getenv("LOG_FILE"),
		Dev:            dev,
	}, nil
}

// ICEServer matches the RTCIceServer shape browsers expect from
// /api/webrtc/config.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// ICEServers builds the client-facing ICE server list from the configured
// STUN and TURN settings.
func (c *Config) ICEServers() []ICEServer {
	servers := make([]ICEServer, 0, len(c.STUNServers)+1)
	for _, url := range c.STUNServers {
		servers = append(servers, ICEServer{URLs: []string{url}})
	}
	if c.TURNServer != "" {
		servers = append(servers, ICEServer{
			URLs:       []string{c.TURNServer},
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

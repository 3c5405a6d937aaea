package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"LIMS-backend/internal/platform/blob"
	"LIMS-backend/internal/platform/db"
	"LIMS-backend/internal/platform/logging"
	"LIMS-backend/internal/platform/notify"
)

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type Server struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type Auth struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	AdminEmails []string      `yaml:"admin_emails"`
	// LoginRatePerMinute limits login/registration attempts per client IP.
	LoginRatePerMinute int `yaml:"login_rate_per_minute"`
}

type Institution struct {
	// Name heads exported reports.
	Name             string            `yaml:"name"`
	EmailDomains     []string          `yaml:"email_domains"`
	DeptPrefix       string            `yaml:"dept_prefix"`
	PadWidth         int               `yaml:"pad_width"`
	IndenterInitials map[string]string `yaml:"indenter_initials"`
}

type Allocation struct {
	// SharedStaffRoom admits any number of staff and never faculty.
	SharedStaffRoom string `yaml:"shared_staff_room"`
}

// Lab is one configured lab: capacity and the people in charge of it.
type Lab struct {
	Name            string   `yaml:"name"`
	Capacity        int      `yaml:"capacity"`
	StaffInCharge   string   `yaml:"staff_in_charge"`
	FacultyInCharge []string `yaml:"faculty_in_charge"`
	MeetingRooms    []string `yaml:"meeting_rooms"`
}

type Config struct {
	Version     string            `yaml:"version"`
	Mode        string            `yaml:"mode"`
	Server      Server            `yaml:"server"`
	DB          db.DatabaseConfig `yaml:"database"`
	Certificate Certs             `yaml:"certificate"`
	Auth        Auth              `yaml:"auth"`
	Institution Institution       `yaml:"institution"`
	Allocation  Allocation        `yaml:"allocation"`
	Labs        []Lab             `yaml:"labs"`
	Offices     []string          `yaml:"offices"`
	Notify      notify.Config     `yaml:"notify"`
	Blob        blob.Config       `yaml:"blob"`
	Log         logging.Config    `yaml:"log"`
}

// Load reads the YAML file, then .env (if present), then LIMS_* overrides.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	_ = godotenv.Load()
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Mode:   "release",
		Server: Server{Addr: ":8443"},
		DB:     db.DatabaseConfig{Driver: db.DriverMySQL, Port: 3306},
		Auth:   Auth{TokenTTL: 12 * time.Hour, LoginRatePerMinute: 10},
		Institution: Institution{
			Name:         "CSE Department",
			EmailDomains: []string{"cse.iith.ac.in"},
			DeptPrefix:   "CSE",
			PadWidth:     3,
			IndenterInitials: map[string]string{
				"M.V.Panduranga Rao": "MVP",
			},
		},
		Notify: notify.Config{Driver: "log", QueueSize: 256},
		Blob:   blob.Config{Driver: blob.DriverFilesystem, Dir: "./blobdata"},
		Log:    logging.Config{Level: "info", Format: "text"},
	}
}

func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", c.Mode)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or LIMS_JWT_SECRET) is required")
	}
	seen := map[string]bool{}
	for _, l := range c.Labs {
		if l.Name == "" || l.Capacity < 0 {
			return fmt.Errorf("lab %q: name and non-negative capacity required", l.Name)
		}
		if seen[l.Name] {
			return fmt.Errorf("lab %q listed twice", l.Name)
		}
		seen[l.Name] = true
	}
	return nil
}

func applyEnv(c *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv("LIMS_" + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv("LIMS_" + key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	str("MODE", &c.Mode)
	str("ADDR", &c.Server.Addr)
	str("DB_DRIVER", &c.DB.Driver)
	str("DB_HOST", &c.DB.Host)
	num("DB_PORT", &c.DB.Port)
	str("DB_USER", &c.DB.Username)
	str("DB_PASSWORD", &c.DB.Password)
	str("DB_NAME", &c.DB.DBName)
	str("DB_PATH", &c.DB.Path)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("REDIS_ADDR", &c.Notify.Redis.Addr)
	str("REDIS_PASSWORD", &c.Notify.Redis.Password)
	str("S3_BUCKET", &c.Blob.S3.Bucket)
	str("S3_REGION", &c.Blob.S3.Region)
	str("S3_ENDPOINT", &c.Blob.S3.Endpoint)
	str("S3_ACCESS_KEY_ID", &c.Blob.S3.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &c.Blob.S3.SecretAccessKey)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := os.LookupEnv("LIMS_ADMIN_EMAILS"); ok {
		c.Auth.AdminEmails = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

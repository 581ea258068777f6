package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log" // log is used to report configuration errors and halt execution
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
)

// Storage backends selectable with STORE_DRIVER.
const (
	DriverMySQL    = "mysql"
	DriverDynamoDB = "dynamodb"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env   string // application environment (e.g. "dev", "prod")
	Port  string // HTTP port to listen on
	Store StoreConfig

	JWTSecret         string // secret used to sign JWTs
	AccessTTLMin      int    // admin token time-to-live in minutes
	AdminPasswordHash string // bcrypt hash of the admin password
	AdminPassword     string // plain admin password, hashed at startup when no hash is set
	BcryptCost        int    // bcrypt cost used for that startup hash

	AMQPURL  string // RabbitMQ URL; empty disables events
	LogLevel string // zap level name
	LogDir   string // directory of the audit log

	Scheme booklet.Scheme // booklet numbering
	Layout booklet.Layout // blocks, floors and quarters
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		Store:        LoadStore(),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:   envInt("BCRYPT_COST", 12),
		AMQPURL:      os.Getenv("AMQP_URL"),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		LogDir:       envStr("AUDIT_LOG_DIR", "logs"),
	}

	cfg.AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	if cfg.AdminPasswordHash == "" {
		cfg.AdminPassword = must("ADMIN_PASSWORD")
	}

	scheme, err := LoadScheme()
	if err != nil {
		log.Fatalf("booklet config: %v", err)
	}
	layout, err := LoadLayout()
	if err != nil {
		log.Fatalf("layout config: %v", err)
	}
	cfg.Scheme, cfg.Layout = scheme, layout
	return cfg
}

// StoreConfig selects and locates the storage backend.
type StoreConfig struct {
	Driver string // DriverMySQL or DriverDynamoDB

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	DynamoTable    string // DynamoDB table name
	AWSRegion      string // region passed to the AWS SDK
	DynamoEndpoint string // optional endpoint override, e.g. DynamoDB Local
}

// LoadStore reads STORE_DRIVER and the variables of the selected backend.
// The MySQL variables are required only when MySQL is selected.
func LoadStore() StoreConfig {
	sc := StoreConfig{Driver: strings.ToLower(envStr("STORE_DRIVER", DriverMySQL))}
	switch sc.Driver {
	case DriverMySQL:
		sc.DBUser = must("DB_USER")
		sc.DBPass = os.Getenv("DB_PASS") // empty allowed
		sc.DBHost = must("DB_HOST")
		sc.DBPort = must("DB_PORT")
		sc.DBName = must("DB_NAME")
	case DriverDynamoDB:
		sc.DynamoTable = envStr("DYNAMODB_TABLE", "donations")
		sc.AWSRegion = envStr("AWS_REGION", "ap-south-1")
		sc.DynamoEndpoint = os.Getenv("DYNAMODB_ENDPOINT")
	default:
		log.Fatalf("invalid STORE_DRIVER: %q", sc.Driver)
	}
	return sc
}

// LoadScheme reads BOOKLET_TOTAL and BOOKLET_CAPACITY, defaulting to 20 booklets
// of 50 receipts.
func LoadScheme() (booklet.Scheme, error) {
	s := booklet.Scheme{
		TotalBooklets: envInt("BOOKLET_TOTAL", booklet.DefaultTotalBooklets),
		Capacity:      envInt("BOOKLET_CAPACITY", booklet.DefaultCapacity),
	}
	if s.TotalBooklets < 1 || s.Capacity < 1 {
		return booklet.Scheme{}, fmt.Errorf("booklet total and capacity must be positive, got %d and %d", s.TotalBooklets, s.Capacity)
	}
	// serial_number is a signed 32-bit column
	if int64(s.TotalBooklets)*int64(s.Capacity) > math.MaxInt32 {
		return booklet.Scheme{}, fmt.Errorf("booklet total times capacity must not exceed %d, got %d x %d", math.MaxInt32, s.TotalBooklets, s.Capacity)
	}
	return s, nil
}

// LoadLayout reads BLOCK_FLOORS and QUARTERS_PER_FLOOR.
func LoadLayout() (booklet.Layout, error) {
	l := booklet.DefaultLayout()
	if raw := os.Getenv("BLOCK_FLOORS"); raw != "" {
		floors, err := ParseBlockFloors(raw)
		if err != nil {
			return booklet.Layout{}, err
		}
		l.Floors = floors
	}
	l.Quarters = envInt("QUARTERS_PER_FLOOR", booklet.DefaultQuarters)
	if l.Quarters < 1 {
		return booklet.Layout{}, fmt.Errorf("QUARTERS_PER_FLOOR must be positive, got %d", l.Quarters)
	}
	return l, nil
}

// ParseBlockFloors parses "A:11,B:9" into a block -> max floor map.  Block
// codes are upper-cased and at most model.MaxBlockCode long; each must appear
// once with a positive floor count.
func ParseBlockFloors(raw string) (map[string]int, error) {
	floors := map[string]int{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, n, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("block entry %q: want CODE:FLOORS", part)
		}
		code = booklet.NormalizeBlock(code)
		if code == "" {
			return nil, fmt.Errorf("block entry %q: empty code", part)
		}
		if utf8.RuneCountInString(code) > model.MaxBlockCode {
			return nil, fmt.Errorf("block entry %q: code longer than %d characters", part, model.MaxBlockCode)
		}
		max, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || max < 1 {
			return nil, fmt.Errorf("block entry %q: floors must be a positive integer", part)
		}
		if _, dup := floors[code]; dup {
			return nil, fmt.Errorf("block %s listed twice", code)
		}
		floors[code] = max
	}
	if len(floors) == 0 {
		return nil, fmt.Errorf("no blocks in %q", raw)
	}
	return floors, nil
}

// FormatBlockFloors is the inverse of ParseBlockFloors, sorted by code.
func FormatBlockFloors(floors map[string]int) string {
	codes := make([]string, 0, len(floors))
	for c := range floors {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = c + ":" + strconv.Itoa(floors[c])
	}
	return strings.Join(parts, ",")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

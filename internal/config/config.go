package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Assignment strategies selectable via ASSIGN_STRATEGY.
const (
    StrategyAtomic = "atomic" // stored procedure commit
    StrategyDirect = "direct" // pre-check plus direct insert
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign JWTs
    AccessTTLMin int    // access token time‑to‑live in minutes
    BcryptCost   int    // bcrypt cost for password hashing

    AssignStrategy       string // commit strategy: "atomic" or "direct"
    SessionsEnabled      bool   // manual assignment sessions on/off
    HoldTTLMin           int    // table hold time‑to‑live in minutes
    SessionTTLMin        int    // assignment session time‑to‑live in minutes
    HoldSweepIntervalSec int    // expired hold sweeper cadence in seconds
    ScarcityCacheTTLMin  int    // scarcity snapshot cache TTL in minutes
    ScarcityRecomputeMin int    // scarcity recompute cadence in minutes
    OutboxBatchSize      int    // events picked per outbox dispatch cycle
    OutboxMaxAttempts    int    // delivery attempts before an event is parked
    OutboxPollIntervalSec int   // outbox poll cadence in seconds

    // Selector search bounds.  These cap the combination search so its
    // worst case cost stays auditable per deployment.
    SelectorKMax            int // max tables per merge
    SelectorMaxWaste        int // max seats over party size for a merge
    SelectorMaxPlansPerTier int // max plans kept per waste tier
    SelectorMaxEvaluations  int // max combinations examined in total

    // Selector scoring weights.
    SelectorWeightWaste         float64 // seats over party size
    SelectorWeightTableCount    float64 // extra tables beyond the first
    SelectorWeightScarcity      float64 // summed scarcity of the plan's tables
    SelectorWeightFragmentation float64 // wasted share of the plan's capacity
    SelectorWeightZoneBalance   float64 // share of the zone's free tables consumed
    SelectorWeightAdjacency     float64 // non adjacent merge penalty (advisory mode)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Assignment tunables
// all have working defaults so a dev environment only needs the core set.
func Load() Config {
    return Config{
        Env:          must("APP_ENV"),      // environment (dev/test/prod)
        Port:         must("APP_PORT"),     // port to bind the HTTP server
        DBUser:       must("DB_USER"),      // database user
        DBPass:       os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:       must("DB_HOST"),      // database host
        DBPort:       must("DB_PORT"),      // database port
        DBName:       must("DB_NAME"),      // database name
        JWTSecret:    must("JWT_SECRET"),   // secret used for signing JWTs
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
        BcryptCost:   mustInt("BCRYPT_COST"),          // bcrypt cost factor

        AssignStrategy:        envStr("ASSIGN_STRATEGY", StrategyAtomic),
        SessionsEnabled:       envBool("ASSIGN_SESSIONS_ENABLED", true),
        HoldTTLMin:            envInt("HOLD_TTL_MIN", 5),
        SessionTTLMin:         envInt("SESSION_TTL_MIN", 30),
        HoldSweepIntervalSec:  envInt("HOLD_SWEEP_INTERVAL_SEC", 30),
        ScarcityCacheTTLMin:   envInt("SCARCITY_CACHE_TTL_MIN", 5),
        ScarcityRecomputeMin:  envInt("SCARCITY_RECOMPUTE_MIN", 10),
        OutboxBatchSize:       envInt("OUTBOX_BATCH_SIZE", 50),
        OutboxMaxAttempts:     envInt("OUTBOX_MAX_ATTEMPTS", 10),
        OutboxPollIntervalSec: envInt("OUTBOX_POLL_INTERVAL_SEC", 2),

        SelectorKMax:            envInt("SELECTOR_KMAX", 3),
        SelectorMaxWaste:        envInt("SELECTOR_MAX_WASTE", 4),
        SelectorMaxPlansPerTier: envInt("SELECTOR_MAX_PLANS_PER_TIER", 50),
        SelectorMaxEvaluations:  envInt("SELECTOR_MAX_EVALUATIONS", 500),

        SelectorWeightWaste:         envFloat("SELECTOR_WEIGHT_WASTE", 1.0),
        SelectorWeightTableCount:    envFloat("SELECTOR_WEIGHT_TABLE_COUNT", 0.6),
        SelectorWeightScarcity:      envFloat("SELECTOR_WEIGHT_SCARCITY", 0.8),
        SelectorWeightFragmentation: envFloat("SELECTOR_WEIGHT_FRAGMENTATION", 0.4),
        SelectorWeightZoneBalance:   envFloat("SELECTOR_WEIGHT_ZONE_BALANCE", 0.3),
        SelectorWeightAdjacency:     envFloat("SELECTOR_WEIGHT_ADJACENCY", 0.5),
    }
}

// envFloat reads a float env var, falling back to the default on a
// missing or malformed value.
func envFloat(k string, d float64) float64 {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    f, err := strconv.ParseFloat(v, 64)
    if err != nil {
        return d
    }
    return f
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Settings holds the runtime configuration resolved from the config file,
// HEBDAY_* environment variables and defaults.
type Settings struct {
	ListenAddr   string
	Port         string
	DatabasePath string

	CacheSize     int
	CacheSnapshot string

	ConverterMode   string
	OracleURL       string
	OracleTimeout   time.Duration
	OracleRate      float64
	OracleBurst     int
	OracleRetryMax  int
	BreakerFailures uint32
	BreakerCooldown time.Duration

	ProjectionCount   int
	ProjectionCeiling int
	ProjectionWorkers int
	Policy            string

	RefreshInterval time.Duration
	Language        string
	Timezone        string
	SessionTTL      time.Duration
	LoginPerMinute  int
	ReminderTrigger string
}

// DataDir returns the per-user directory holding the database, the cache
// snapshot and the log file, creating it if needed.
func DataDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrCacheDir, err)
	}
	appDir := filepath.Join(cacheDir, AppID)
	if err := os.MkdirAll(appDir, DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", ErrCreateDir, err)
	}
	return appDir, nil
}

// SetDefaults registers every setting's default value on v.
func SetDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault(KeyListenAddr, LocalhostBindAddr)
	v.SetDefault(KeyServerPort, DefaultPort)
	v.SetDefault(KeyDatabasePath, filepath.Join(dataDir, DatabaseFileName))
	v.SetDefault(KeyCacheSize, DefaultCacheSize)
	v.SetDefault(KeyCacheSnapshot, filepath.Join(dataDir, CacheFileName))
	v.SetDefault(KeyConverterMode, DefaultConverterMode)
	v.SetDefault(KeyOracleURL, DefaultOracleURL)
	v.SetDefault(KeyOracleTimeout, OracleCallTimeout)
	v.SetDefault(KeyOracleRate, DefaultOracleRate)
	v.SetDefault(KeyOracleBurst, DefaultOracleBurst)
	v.SetDefault(KeyOracleRetryMax, DefaultOracleRetryMax)
	v.SetDefault(KeyBreakerFailures, DefaultBreakerFailures)
	v.SetDefault(KeyBreakerCooldown, BreakerCooldown)
	v.SetDefault(KeyProjectionCount, DefaultProjectionCount)
	v.SetDefault(KeyProjectionCeiling, DefaultProjectionCeiling)
	v.SetDefault(KeyProjectionWorkers, DefaultProjectionWorkers)
	v.SetDefault(KeyProjectionPolicy, DefaultPolicy)
	v.SetDefault(KeyRefreshInterval, time.Duration(DefaultRefreshMin)*time.Minute)
	v.SetDefault(KeyLanguage, DefaultLanguage)
	v.SetDefault(KeyTimezone, "")
	v.SetDefault(KeySessionTTL, DefaultSessionTTL)
	v.SetDefault(KeyLoginRate, DefaultLoginPerMinute)
	v.SetDefault(KeyReminderTrigger, DefaultReminderTrigger)
}

// Load reads cfgFile (or ~/.hebday.yaml when empty) into v and resolves the
// settings. A missing default config file is not an error.
func Load(v *viper.Viper, cfgFile string) (Settings, error) {
	log := slog.With(LogKeyComponent, CompMain)

	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", ErrConfigRead, err)
		}
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("%s: %w", ErrConfigRead, err)
		}
		log.Debug(MsgConfigMissing)
	} else {
		log.Debug(MsgConfigLoaded, LogKeyFile, v.ConfigFileUsed())
	}

	s := Settings{
		ListenAddr:        v.GetString(KeyListenAddr),
		Port:              v.GetString(KeyServerPort),
		CacheSize:         v.GetInt(KeyCacheSize),
		ConverterMode:     strings.ToLower(v.GetString(KeyConverterMode)),
		OracleURL:         v.GetString(KeyOracleURL),
		OracleTimeout:     v.GetDuration(KeyOracleTimeout),
		OracleRate:        v.GetFloat64(KeyOracleRate),
		OracleBurst:       v.GetInt(KeyOracleBurst),
		OracleRetryMax:    v.GetInt(KeyOracleRetryMax),
		BreakerFailures:   v.GetUint32(KeyBreakerFailures),
		BreakerCooldown:   v.GetDuration(KeyBreakerCooldown),
		ProjectionCount:   v.GetInt(KeyProjectionCount),
		ProjectionCeiling: v.GetInt(KeyProjectionCeiling),
		ProjectionWorkers: v.GetInt(KeyProjectionWorkers),
		Policy:            strings.ToLower(v.GetString(KeyProjectionPolicy)),
		RefreshInterval:   v.GetDuration(KeyRefreshInterval),
		Language:          v.GetString(KeyLanguage),
		Timezone:          v.GetString(KeyTimezone),
		SessionTTL:        v.GetDuration(KeySessionTTL),
		LoginPerMinute:    v.GetInt(KeyLoginRate),
		ReminderTrigger:   v.GetString(KeyReminderTrigger),
	}

	var err error
	if s.DatabasePath, err = homedir.Expand(v.GetString(KeyDatabasePath)); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", ErrConfigDecode, err)
	}
	if s.CacheSnapshot, err = homedir.Expand(v.GetString(KeyCacheSnapshot)); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", ErrConfigDecode, err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (s Settings) Validate() error {
	if err := ValidatePort(s.Port); err != nil {
		return err
	}
	if !slices.Contains([]string{ConverterLocal, ConverterOracle, ConverterFallback}, s.ConverterMode) {
		return fmt.Errorf("%s: %q", ErrUnknownMode, s.ConverterMode)
	}
	if s.Policy != PolicyObserved && s.Policy != PolicyStrict {
		return fmt.Errorf("%s: %q", ErrUnknownPolicy, s.Policy)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// ValidatePort checks that port is a number within the TCP range.
func ValidatePort(port string) error {
	if port == "" {
		return errors.New(ErrPortRequired)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return errors.New(ErrPortNumber)
	}
	if n < MinPort || n > MaxPort {
		return errors.New(ErrPortRange)
	}
	return nil
}

// Location resolves the configured timezone; empty means the local zone.
func (s Settings) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrTimezone, err)
	}
	return loc, nil
}

// Addr returns the listen address in host:port form.
func (s Settings) Addr() string {
	return s.ListenAddr + AddrSeparator + s.Port
}

package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client towards the calendar oracle.
var UserAgent = "Hebday/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Hebrew Birthday"
	AppID             = "com.github.tartampluch.hebday"
	KeyringService    = "com.github.tartampluch.hebday"
	KeyringSessionKey = "session-signing-key"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	DatabaseFileName  = "hebday.db"
	CacheFileName     = "conversions.cbor"
	ConfigFileName    = ".hebday"
	ConfigFileType    = "yaml"
	EnvPrefix         = "HEBDAY"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs, the database and cache snapshots.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands, Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	CmdRoot    = "hebday"
	CmdServe   = "serve"
	CmdConvert = "convert <yyyy-mm-dd>"
	CmdNext    = "next <yyyy-mm-dd>"
	CmdImport  = "import <file.csv|file.vcf>"
	CmdExport  = "export [file]"
	CmdUser    = "user"
	CmdUserAdd = "add <email>"

	CmdDescRoot    = "Track birthdays and their recurring Hebrew-calendar anniversaries"
	CmdDescServe   = "Run the HTTP API, the calendar feed and the background refresher"
	CmdDescConvert = "Convert a Gregorian date to its Hebrew date"
	CmdDescNext    = "Show the next Gregorian occurrences of a Hebrew birthday"
	CmdDescImport  = "Import birth records from a CSV or vCard file"
	CmdDescExport  = "Export all birth records as CSV (stdout when no file is given)"
	CmdDescUser    = "Manage user accounts"
	CmdDescUserAdd = "Create a user account (the first account is an admin)"

	FlagDebug       = "debug"
	FlagConfig      = "config"
	FlagAfterSunset = "after-sunset"
	FlagCount       = "count"
	FlagFirstName   = "first-name"
	FlagLastName    = "last-name"
	FlagPassword    = "password"
	FlagNow         = "now"

	FlagDescDebug       = "Enable debug logging"
	FlagDescConfig      = "config file (default is $HOME/.hebday.yaml)"
	FlagDescAfterSunset = "The birth happened after sunset"
	FlagDescCount       = "Number of occurrences to compute"
	FlagDescFirstName   = "First name of the user"
	FlagDescLastName    = "Last name of the user"
	FlagDescPassword    = "Password of the user (prompted from stdin when empty)"
	FlagDescNow         = "Compute as of this date (yyyy-mm-dd) instead of today"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
	MsgConvertOutput = "%s -> %s (%s)\n"
	MsgNextOutput    = "%d. %s (%d)\n"
	MsgNextPartial   = "warning: %s\n"
	MsgImportOutput  = "imported %d records, skipped %d\n"
	MsgUserCreated   = "created %s user %s\n"
	MsgPasswordPrmpt = "Password: "
)

// -----------------------------------------------------------------------------
// Settings Keys (viper)
// -----------------------------------------------------------------------------

const (
	KeyListenAddr        = "server.addr"
	KeyServerPort        = "server.port"
	KeyDatabasePath      = "storage.database"
	KeyCacheSize         = "cache.size"
	KeyCacheSnapshot     = "cache.snapshot"
	KeyConverterMode     = "converter.mode"
	KeyOracleURL         = "oracle.url"
	KeyOracleTimeout     = "oracle.timeout"
	KeyOracleRate        = "oracle.rate"
	KeyOracleBurst       = "oracle.burst"
	KeyOracleRetryMax    = "oracle.retry_max"
	KeyBreakerFailures   = "oracle.breaker_failures"
	KeyBreakerCooldown   = "oracle.breaker_cooldown"
	KeyProjectionCount   = "projection.count"
	KeyProjectionCeiling = "projection.ceiling"
	KeyProjectionWorkers = "projection.concurrency"
	KeyProjectionPolicy  = "projection.policy"
	KeyRefreshInterval   = "refresh.interval"
	KeyLanguage          = "language"
	KeyTimezone          = "timezone"
	KeySessionTTL        = "auth.session_ttl"
	KeyLoginRate         = "auth.login_rate"
	KeyReminderTrigger   = "calendar.reminder"
)

// SupportedLanguages defines the list of available languages (ISO 639-1).
var SupportedLanguages = []string{"en", "he"}

// -----------------------------------------------------------------------------
// Converter Modes & Observance Policies
// -----------------------------------------------------------------------------

const (
	ConverterLocal    = "local"
	ConverterOracle   = "oracle"
	ConverterFallback = "fallback"

	PolicyObserved = "observed"
	PolicyStrict   = "strict"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyEvtSummaryAge   = "event_summary_age"   // Requires Name, Hebrew, Age
	TKeyEvtSummaryBirth = "event_summary_birth" // Requires Name, Hebrew (For age 0)
	TKeyEvtDescription  = "event_description"   // Requires Hebrew, Birth
	TKeyLinkHebrew      = "link_hebrew_birthday"
	TKeyLinkGregorian   = "link_gregorian_birthday"
	TKeyPending         = "calculation_pending"
	TKeyStatusToday     = "status_today"      // Requires Count > 0
	TKeyStatusTodayZero = "status_today_zero" // Explicit key for 0
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort              = "18080"
	DefaultRefreshMin        = 60
	DefaultLanguage          = "en"
	DefaultConverterMode     = ConverterLocal
	DefaultPolicy            = PolicyStrict
	DefaultCacheSize         = 4096
	DefaultProjectionCount   = 5
	DefaultProjectionCeiling = 25
	DefaultProjectionWorkers = 5
	DefaultOracleRate        = 5.0
	DefaultOracleBurst       = 5
	DefaultOracleRetryMax    = 1
	DefaultBreakerFailures   = 5
	DefaultSessionTTL        = 24 * time.Hour
	DefaultLoginPerMinute    = 10
	DefaultReminderTrigger   = ""
	UpcomingWindowDays       = 14
	SessionKeyBytes          = 32
	UIDSalt                  = "hebday-v1-" // Salt for deterministic event UID generation
	DisabledInterval         = 0

	RoleAdmin = "admin"
	RoleUser  = "user"

	GenderMale   = "male"
	GenderFemale = "female"

	TimeframeAll       = "all"
	TimeframeThisMonth = "thisMonth"
	TimeframeNextMonth = "nextMonth"

	SortName         = "name"
	SortDate         = "date"
	SortAge          = "age"
	SortDesc         = "desc"
)

// Argon2id parameters.
const (
	Argon2Time    = 1
	Argon2Memory  = 64 * 1024
	Argon2Threads = 4
	Argon2KeyLen  = 32
	Argon2SaltLen = 16
	MinPassLength = 8
)

// -----------------------------------------------------------------------------
// Calendar Oracle (hebcal.com converter API)
// -----------------------------------------------------------------------------

const (
	DefaultOracleURL  = "https://www.hebcal.com/converter"
	OracleParamCfg    = "cfg"
	OracleParamDate   = "date"
	OracleParamG2H    = "g2h"
	OracleParamH2G    = "h2g"
	OracleParamStrict = "strict"
	OracleParamSunset = "gs"
	OracleParamHY     = "hy"
	OracleParamHM     = "hm"
	OracleParamHD     = "hd"
	OracleValueJSON   = "json"
	OracleValueOn     = "on"
	OracleValueOff    = "off"
	OracleValueTrue   = "1"

	// Response fields.
	OracleFieldError  = "error"
	OracleFieldGY     = "gy"
	OracleFieldGM     = "gm"
	OracleFieldGD     = "gd"
	OracleFieldHY     = "hy"
	OracleFieldHM     = "hm"
	OracleFieldHD     = "hd"
	OracleFieldHebrew = "hebrew"

	OracleBreakerName = "hebcal"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Hebrew Birthday//Engine//EN"
	ICalCalName   = "Hebrew Birthdays"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "hebday"

	// iCal Fields
	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropRefresh     = "REFRESH-INTERVAL"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 1 * time.Hour

	// Google Calendar template links
	GoogleCalendarURL    = "https://calendar.google.com/calendar/render"
	GoogleParamAction    = "action"
	GoogleParamText      = "text"
	GoogleParamDates     = "dates"
	GoogleParamDetails   = "details"
	GoogleActionTemplate = "TEMPLATE"
	FormatLinkTitle      = "%s | %d | %s"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	DateFormatISO       = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatCSV       = "02/01/2006"
	DateTimeFormatCSV   = "02/01/2006 15:04:05"

	// CSV columns
	CSVColID           = "ID"
	CSVColFirstName    = "First Name"
	CSVColLastName     = "Last Name"
	CSVColBirthday     = "Birthday"
	CSVColAfterSunset  = "After Sunset"
	CSVColGender       = "Gender"
	CSVColHebrewDate   = "Hebrew Date"
	CSVColNextBirthday = "Next Birthday"
	CSVColAge          = "Age"
	CSVColPlus2        = "+2 years"
	CSVColPlus3        = "+3 years"
	CSVColPlus4        = "+4 years"
	CSVColPlus5        = "+5 years"
	CSVColArchived     = "Archived"
	CSVColExportDate   = "Export Date"
	CSVYes             = "Yes"
	CSVNo              = "No"
	CSVBOM             = "\ufeff"

	// Limits
	MinPort            = 1
	MaxPort            = 65535
	MaxImportSize      = 16 * 1024 * 1024
	MaxRequestBodySize = 1 * 1024 * 1024
	MaxProjectionCount = 25

	// UID Generation
	UIDHashLength   = 16
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s-%d@%s"

	// File Extensions
	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
	ExtCSV   = ".csv"

	// vCard stream detection
	VCardBegin     = "BEGIN:VCARD"
	VCardPeekBytes = 512
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	OracleCallTimeout     = 8 * time.Second
	FetchTimeout          = 30 * time.Second
	OracleRetryWaitMin    = 200 * time.Millisecond
	OracleRetryWaitMax    = 2 * time.Second
	BreakerCooldown       = 30 * time.Second
	ShutdownTimeout       = 5 * time.Second
	ServerReadTimeout     = 10 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 60 * time.Second
	RetryAfterSeconds     = "10"
	AllowedMethods        = "GET, HEAD"
	MaxOracleResponseSize = 64 * 1024
	SchemeHTTP            = "http"
	SchemeHTTPS           = "https"
	AddrSeparator         = ":"
	BearerPrefix          = "Bearer "
)

// -----------------------------------------------------------------------------
// HTTP Routes
// -----------------------------------------------------------------------------

const (
	RouteCalendar     = "/calendar.ics"
	RouteHealth       = "/healthz"
	RouteAPI          = "/api"
	RouteRegister     = "/auth/register"
	RouteLogin        = "/auth/login"
	RouteLogout       = "/auth/logout"
	RouteMe           = "/auth/me"
	RouteBirthdays    = "/birthdays"
	RouteArchived     = "/birthdays/archived"
	RouteStats        = "/birthdays/stats"
	RouteExport       = "/birthdays/export"
	RouteImport       = "/birthdays/import"
	RouteRefresh      = "/birthdays/refresh"
	RouteBirthday     = "/birthdays/{id}"
	RouteArchive      = "/birthdays/{id}/archive"
	RouteRestore      = "/birthdays/{id}/restore"
	RouteCalendarLink = "/birthdays/{id}/calendar-link"
	RouteConvert      = "/convert"
	RouteConvertHeb   = "/convert/hebrew"
	RouteNext         = "/next"
	RouteHebrewYear   = "/hebrew-year"
	URLParamID        = "id"
	FormFieldFile     = "file"

	QueryDate        = "date"
	QueryAfterSunset = "afterSunset"
	QueryYear        = "year"
	QueryMonth       = "month"
	QueryDay         = "day"
	QueryCount       = "count"
	QuerySearch      = "search"
	QueryGender      = "gender"
	QueryTimeframe   = "timeframe"
	QuerySortBy      = "sortBy"
	QuerySortOrder   = "sortOrder"
	QueryType        = "type"

	LinkTypeHebrew    = "hebrew"
	LinkTypeGregorian = "gregorian"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderCacheControl       = "Cache-Control"
	HeaderETag               = "ETag"
	HeaderLastModified       = "Last-Modified"
	HeaderRetryAfter         = "Retry-After"
	HeaderAllow              = "Allow"
	HeaderXContentType       = "X-Content-Type-Options"
	HeaderUserAgent          = "User-Agent"
	HeaderAccept             = "Accept"
	HeaderAuthorization      = "Authorization"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderIfModifiedSince    = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json"
	MimeCSV             = "text/csv; charset=utf-8"
	MimeMultipart       = "multipart/form-data"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
	FormatAttachment    = `attachment; filename="birthdays-%s.csv"`

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	// Domain
	ErrConversionUnavailable = "hebrew date conversion unavailable"
	ErrInvalidHebrewDate     = "hebrew date does not exist"
	ErrProjectionExhausted   = "projection ceiling reached"
	ErrPartialProjection     = "projection incomplete"
	ErrInvalidGregorian      = "invalid gregorian date"
	ErrUnknownPolicy         = "unknown observance policy"
	ErrUnknownMode           = "unknown converter mode"

	// Oracle
	ErrInvalidURL     = "invalid URL structure"
	ErrProtocol       = "unsupported protocol scheme (http/https only)"
	ErrOracleStatus   = "oracle returned unexpected status"
	ErrOracleRequest  = "oracle request failed"
	ErrOracleMalform  = "oracle returned a malformed response"
	ErrOracleRejected = "oracle rejected the request"

	// Cache
	ErrCacheInit     = "failed to create conversion cache"
	ErrCacheSnapshot = "failed to write cache snapshot"
	ErrCacheRestore  = "failed to read cache snapshot"

	// Storage
	ErrNotFound      = "record not found"
	ErrStoreOpen     = "failed to open database"
	ErrStoreMigrate  = "failed to migrate database schema"
	ErrStoreQuery    = "database query failed"
	ErrStoreEncode   = "failed to encode derived fields"
	ErrStoreDecode   = "failed to decode derived fields"
	ErrMissingFields = "first name, last name and birth date are required"
	ErrInvalidGender = "gender must be male or female"
	ErrInvalidRecord = "invalid birth record"

	// Auth
	ErrInvalidCredentials = "invalid email or password"
	ErrEmailTaken         = "email already registered"
	ErrRateLimited        = "too many attempts, try again later"
	ErrForbidden          = "admin privileges required"
	ErrUnauthenticated    = "authentication required"
	ErrWeakPassword       = "password is too short"
	ErrInvalidEmail       = "invalid email address"
	ErrTokenMalformed     = "malformed session token"
	ErrTokenExpired       = "session expired"
	ErrTokenRevoked       = "session revoked"
	ErrSecretAccess       = "failed to access session signing key"
	ErrPasswordHash       = "failed to hash password"

	// Import / Export
	ErrCSVHeader     = "CSV is missing required columns"
	ErrCSVRead       = "failed to read CSV"
	ErrCSVWrite      = "failed to write CSV"
	ErrVCardParse    = "failed to parse vCard stream"
	ErrUnknownFormat = "unsupported import format"
	ErrDateParse     = "unable to parse date"
	ErrFetchRequest  = "import download failed"
	ErrFetchStatus   = "import source returned unexpected status"
	ErrLinkPending   = "hebrew birthday not computed yet"
	ErrLinkType      = "unknown calendar link type"
	ErrNoIDs         = "no record ids given"

	// Application
	ErrICalEncode     = "failed to encode iCalendar data"
	ErrServerStartup  = "server startup failed"
	ErrServerShutdown = "server shutdown failed"
	ErrPortRequired   = "server port is required"
	ErrPortNumber     = "server port must be a number"
	ErrPortRange      = "server port must be between 1 and 65535"
	ErrLogFile        = "failed to open log file"
	ErrCacheDir       = "could not determine user cache dir"
	ErrCreateDir      = "could not create app cache dir"
	ErrAppFailed      = "application failed unexpectedly"
	ErrWriteResp      = "failed to write response body"
	ErrLocalesAccess  = "failed to access embedded locales"
	ErrLocaleLoad     = "failed to load locale file"
	ErrLocNotInit     = "localizer not initialized"
	ErrConfigRead     = "failed to read configuration"
	ErrConfigDecode   = "failed to decode configuration"
	ErrTimezone       = "unknown timezone"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
	HTTPMsgBadRequest   = "Bad Request"
	HTTPMsgOK           = "ok"
)

// -----------------------------------------------------------------------------
// Fallbacks & Defaults
// -----------------------------------------------------------------------------

const (
	FallbackSummaryAge   = "Hebrew birthday: %s (%s, %d)"
	FallbackSummaryBirth = "Hebrew birthday: %s (%s, birth)"
	FallbackDescription  = "%s, born %s"
	FallbackPending      = "Calculation pending"
	FallbackStatus       = "%d Hebrew birthdays today"
	FallbackLinkHebrew   = "יום הולדת עברי"
	FallbackLinkGreg     = "יום הולדת לועזי"
	FallbackName         = "Unknown"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"

	MsgRefreshFailed    = "Refresh failed. Check logs."
	MsgRefreshReq       = "Refresh requested"
	MsgWorkerStart      = "Background worker started"
	MsgWorkerStop       = "Worker stopping due to context cancellation"
	MsgAppStop          = "Application stopped gracefully"
	MsgSkippedCard      = "Skipping malformed vCard"
	MsgSkippedDate      = "Skipping invalid date format"
	MsgSkippedRow       = "Skipping invalid CSV row"
	MsgGenSuccess       = "Calendar generation successful"
	MsgAppStarting      = "Starting application"
	MsgServerListen     = "HTTP server listening"
	MsgServerStop       = "Shutting down HTTP server..."
	MsgCacheUpdated     = "Calendar cache updated"
	MsgLocaleSkip       = "Skipping non-locale file"
	MsgLocaleBadName    = "Skipping malformed locale filename"
	MsgLocaleLoaded     = "Locale loaded successfully"
	MsgTransMissing     = "Missing translation key"
	MsgLogWarning       = "Warning: %s at %s: %v\n"
	MsgBdayToday        = "Hebrew birthday found today"
	MsgOracleCall       = "Calling calendar oracle"
	MsgOracleFailed     = "Calendar oracle call failed"
	MsgOracleFallback   = "Oracle unavailable, falling back to local calendar"
	MsgBreakerState     = "Oracle circuit breaker changed state"
	MsgCacheHit         = "Conversion cache hit"
	MsgCacheMiss        = "Conversion cache miss"
	MsgCacheLoaded      = "Conversion cache snapshot loaded"
	MsgCacheSaved       = "Conversion cache snapshot saved"
	MsgCacheSnapMissing = "No conversion cache snapshot found"
	MsgYearRetry        = "Retrying year conversion"
	MsgYearFailed       = "Year conversion failed, skipping"
	MsgYearSkipped      = "Birth month does not occur this year, skipping"
	MsgProjectionDone   = "Projection finished"
	MsgRecordPending    = "Projection failed, record marked pending"
	MsgRecordSaved      = "Birth record saved"
	MsgRecordsDeleted   = "Birth records deleted"
	MsgRecordsImported  = "Birth records imported"
	MsgUserRegistered   = "User registered"
	MsgLoginFailed      = "Login failed"
	MsgLoginSuccess     = "Login succeeded"
	MsgSecretCreated    = "Generated new session signing key"
	MsgConfigLoaded     = "Configuration loaded"
	MsgConfigMissing    = "No configuration file found, using defaults"
	MsgRequest          = "HTTP request"
	MsgStoreOpened      = "Database opened"
	MsgFetchStarted     = "Downloading import file"
	MsgPortBusy         = "Port busy or server error"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent   = "component"
	LogKeyError       = "error"
	LogKeyURL         = "url"
	LogKeyStatus      = "status_code"
	LogKeyFile        = "file"
	LogKeyLang        = "lang"
	LogKeyKey         = "key"
	LogKeyPort        = "port"
	LogKeyPolicy      = "policy"
	LogKeyInterval    = "interval"
	LogKeyOld         = "old"
	LogKeyNew         = "new"
	LogKeyUser        = "user"
	LogKeyRole        = "role"
	LogKeyRecords     = "records"
	LogKeyPending     = "pending"
	LogKeyToday       = "birthdays_today"
	LogKeyEvents      = "events"
	LogKeySizeBytes   = "size_bytes"
	LogKeyETag        = "etag"
	LogKeyManual      = "manual"
	LogKeyValue       = "value"
	LogKeyStats       = "stats"
	LogKeyCount       = "count"
	LogKeySkipped     = "skipped"
	LogKeyName        = "name"
	LogKeyID          = "id"
	LogKeyDate        = "date"
	LogKeyHebrew      = "hebrew"
	LogKeyYear        = "year"
	LogKeyFailed      = "failed_years"
	LogKeyDuration    = "duration_ms"
	LogKeyMethod      = "method"
	LogKeyPath        = "path"
	LogKeyEntries     = "entries"
	LogKeyLine        = "line"
	LogKeyReady       = "ready"
	LogKeyDeleted     = "deleted"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine    = "engine"
	CompOracle    = "oracle"
	CompCache     = "cache"
	CompProjector = "projector"
	CompStore     = "store"
	CompRecords   = "records"
	CompFetcher   = "fetcher"
	CompAuth      = "auth"
	CompServer    = "server"
	CompWorker    = "worker"
	CompMain      = "main"
	CompI18n      = "i18n"
	CompApp       = "app"
)

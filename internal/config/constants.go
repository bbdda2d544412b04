package config

const SourceFileExt = ".py"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".py", ".pyw"}

// PackageInitFile marks a directory as a package.
const PackageInitFile = "__init__.py"

// ConfigFileNames are looked up, in order, when searching for a project config.
var ConfigFileNames = []string{"expect.yaml", "expect.yml"}

// Version is reported by the CLI and folded into cache keys.
// Can be set at build time using: -ldflags "-X github.com/funvibe/expect/internal/config.Version=..."
var Version = "0.3.0"

// Rewrite vocabulary
const (
	TriggerKeyword = "expect"
	TempName       = "ret"
	SentinelName   = "None"
)

// Host grammar keywords the rewriter cares about
const (
	IfKeyword     = "if"
	ElseKeyword   = "else"
	ElifKeyword   = "elif"
	WhileKeyword  = "while"
	AssertKeyword = "assert"
	ForKeyword    = "for"
)

// Defaults for the outer surfaces
const (
	DefaultListenAddr = "127.0.0.1:7451"
	DefaultPython     = "python3"
	DefaultCacheFile  = ".expect/cache.db"
)

// IsTestMode indicates if the program is running in test mode.
// This is set once at startup in main.go from EXPECT_TEST_MODE.
var IsTestMode = false

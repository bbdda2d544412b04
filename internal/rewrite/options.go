package rewrite

import "github.com/funvibe/expect/internal/config"

// Policy decides whether a construct may stand as a bare condition.
type Policy int

const (
	// PolicyPermissive accepts the construct anywhere a ternary can go,
	// including the condition of if/elif/while/assert statements.
	PolicyPermissive Policy = iota
	// PolicyStrict also rejects the construct as the condition of
	// statements, and right after any `if` even when bracketed.
	PolicyStrict
)

func (p Policy) String() string {
	if p == PolicyStrict {
		return "strict"
	}
	return "permissive"
}

// Options configures an Engine.
type Options struct {
	Keyword        string
	TempName       string
	SharedTempName bool
	Policy         Policy
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Keyword:  config.TriggerKeyword,
		TempName: config.TempName,
		Policy:   PolicyPermissive,
	}
}

// WithKeyword changes the trigger keyword.
func WithKeyword(keyword string) Option {
	return func(o *Options) { o.Keyword = keyword }
}

// WithTempName changes the base name of the bound temporaries.
func WithTempName(name string) Option {
	return func(o *Options) { o.TempName = name }
}

// WithSharedTempName binds every site to the same temporary name.
func WithSharedTempName() Option {
	return func(o *Options) { o.SharedTempName = true }
}

// WithPolicy selects the condition policy.
func WithPolicy(p Policy) Option {
	return func(o *Options) { o.Policy = p }
}

// FromConfig translates a project configuration into options.
func FromConfig(cfg *config.Config) []Option {
	opts := []Option{WithKeyword(cfg.Keyword), WithTempName(cfg.TempName)}
	if cfg.SharedTempName {
		opts = append(opts, WithSharedTempName())
	}
	if cfg.Strict {
		opts = append(opts, WithPolicy(PolicyStrict))
	}
	return opts
}

// Fingerprint identifies the options for cache keys.
func (o Options) Fingerprint() string {
	shared := "unique"
	if o.SharedTempName {
		shared = "shared"
	}
	return o.Keyword + "\x00" + o.TempName + "\x00" + shared + "\x00" + o.Policy.String()
}

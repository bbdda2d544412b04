// Package expect rewrites Python sources that use the
// `expect <expr> else <fallback>` construct into plain Python.
//
//	out, err := expect.RewriteString("x = expect f() else 0\n")
//	// out == "x = ret if (ret := f()) is not None else 0\n"
package expect

import (
	"github.com/funvibe/expect/internal/lexer"
	"github.com/funvibe/expect/internal/prettyprinter"
	"github.com/funvibe/expect/internal/rewrite"
	"github.com/funvibe/expect/internal/token"
)

// Token is a lexical token of the host language.
type Token = token.Token

// Error is a rewrite failure. Use errors.As to inspect Kind and position.
type Error = rewrite.Error

// Error kinds.
const (
	UnterminatedConstruct        = rewrite.UnterminatedConstruct
	ConstructUsedAsBareCondition = rewrite.ConstructUsedAsBareCondition
	InternalInvariant            = rewrite.InternalInvariant
)

// Option configures a rewrite.
type Option = rewrite.Option

// WithStrictConditions rejects constructs that would be the tested value of
// a condition.
func WithStrictConditions() Option {
	return rewrite.WithPolicy(rewrite.PolicyStrict)
}

// WithSharedTempName binds every site to the same temporary name.
func WithSharedTempName() Option {
	return rewrite.WithSharedTempName()
}

// WithKeyword changes the trigger keyword.
func WithKeyword(k string) Option {
	return rewrite.WithKeyword(k)
}

// WithTempName changes the base name of the bound temporaries.
func WithTempName(base string) Option {
	return rewrite.WithTempName(base)
}

// Tokenize splits src into tokens.
func Tokenize(src string) ([]Token, error) {
	return lexer.Tokenize(src)
}

// RewriteTokens rewrites a token stream. On failure no tokens are returned.
func RewriteTokens(tokens []Token, opts ...Option) ([]Token, error) {
	return rewrite.Rewrite(tokens, opts...)
}

// Untokenize prints a token stream back as source.
func Untokenize(tokens []Token) (string, error) {
	return prettyprinter.Untokenize(tokens)
}

// RewriteString tokenizes src, rewrites it and prints the result.
func RewriteString(src string, opts ...Option) (string, error) {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return "", err
	}
	out, err := rewrite.Rewrite(tokens, opts...)
	if err != nil {
		return "", err
	}
	return prettyprinter.Untokenize(out)
}

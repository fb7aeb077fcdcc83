// Package middleware define middlewares for Jobs.
package middleware

import "github.com/blacktop/il2cpp-decompile/internal/pipeline/context"

// Action is a function that takes a context and returns an error.
// It wraps the Run method of every pipe.
type Action func(ctx *context.Context) error

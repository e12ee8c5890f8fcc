// Package stage defines the contract pipeline stages implement and the
// health reporting shared by the workflow manager and the CLI.
package stage

import (
	"context"

	"readscape/internal/library"
)

// Handler executes one pipeline stage for a single book.
//
// Prepare runs before Execute and may adjust the book record (progress text,
// derived fields) without doing the heavy work. Execute performs the stage
// and mutates the book in place; the workflow manager persists the record
// after each phase. Implementations must honor context cancellation on any
// blocking work.
type Handler interface {
	Prepare(ctx context.Context, book *library.Book) error
	Execute(ctx context.Context, book *library.Book) error
	HealthCheck(ctx context.Context) Health
}

// Health reports whether a stage's external dependencies are usable.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy builds a passing health report.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true, Detail: "ok"}
}

// Unhealthy builds a failing health report with a reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

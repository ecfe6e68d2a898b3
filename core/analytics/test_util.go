package analytics

import (
	"github.com/trezcool/darasa/core"
)

// NewServiceMock returns a Service that tracks synchronously.
func NewServiceMock(repo Repository) Service {
	svc := NewService(repo, core.NewNopLogger()).(*service)
	svc.goFunc = func(f func()) { f() }
	return svc
}

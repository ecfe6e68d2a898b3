package course

import (
	"github.com/trezcool/darasa/core"
)

// NewServiceMock returns a Service that runs its side effects (mails, file cleanup) synchronously.
func NewServiceMock(deps Deps) Service {
	if deps.Logger == nil {
		deps.Logger = core.NewNopLogger()
	}
	svc := NewService(deps).(*service)
	svc.goFunc = func(f func()) { f() }
	return svc
}

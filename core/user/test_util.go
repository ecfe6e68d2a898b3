package user

import (
	"github.com/trezcool/darasa/core"
)

// NewServiceMock returns a Service that runs its side effects (mails, audience sync) synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, subscriber Subscriber, conf *core.Config) Service {
	svc := NewService(repo, mailSvc, subscriber, core.NewNopLogger(), conf).(*service)
	svc.goFunc = func(f func()) { f() }
	return svc
}

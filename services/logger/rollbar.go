package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/userNanni/sisub-sub000/core"
	"github.com/userNanni/sisub-sub000/core/user"
)

// RollbarLogger reports to rollbar and mirrors every entry on a standard
// logger so local output stays readable when rollbar is disabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// setPerson binds a user.User found among the args to the rollbar item as
// the affected person and strips it from the payload; the first match wins.
// With no match any person bound by an earlier entry is cleared.
func (l RollbarLogger) setPerson(args []interface{}) []interface{} {
	rest := make([]interface{}, 0, len(args))
	var bound bool
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok && !bound {
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			bound = true
			continue
		}
		rest = append(rest, arg)
	}
	if !bound {
		rollbar.ClearPerson()
	}
	return rest
}

func (l RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) {
	send(append([]interface{}{msg}, l.setPerson(args)...)...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.Debug, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.Info, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.Warning, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.Error, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	rollbar.Wait() // Fatal exits; drain queued items first
	l.std.Fatal(msg)
}
